package nlquery

import "testing"

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"sql fence",
			"```sql\nSELECT 1\n```",
			"SELECT 1",
		},
		{
			"uppercase fence",
			"```SQL\nSELECT 1\n```",
			"SELECT 1",
		},
		{
			"postgresql fence",
			"```postgresql\nSELECT 1\n```",
			"SELECT 1",
		},
		{
			"bare fence",
			"```\nSELECT 1\n```",
			"SELECT 1",
		},
		{
			"no fence",
			"  SELECT 1  ",
			"SELECT 1",
		},
		{
			"unterminated fence",
			"```sql\nSELECT 1",
			"SELECT 1",
		},
		{
			"empty response",
			"",
			"",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractSQL(tc.in); got != tc.want {
				t.Errorf("ExtractSQL(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
