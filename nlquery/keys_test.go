package nlquery

import "testing"

func TestKeyManagerRotation(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key-a")
	t.Setenv("GEMINI_API_KEY_2", "key-b")
	t.Setenv("GEMINI_API_KEY_3", "")

	km := NewKeyManager()
	if !km.HasKeys() {
		t.Fatal("HasKeys() = false with keys configured")
	}

	got := []string{km.NextKey(), km.NextKey(), km.NextKey()}
	want := []string{"key-a", "key-b", "key-a"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NextKey() call %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestKeyManagerEmpty(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY_2", "")
	t.Setenv("GEMINI_API_KEY_3", "")
	t.Setenv("GEMINI_API_KEY_4", "")

	km := NewKeyManager()
	if km.HasKeys() {
		t.Error("HasKeys() = true with no keys configured")
	}
	if key := km.NextKey(); key != "" {
		t.Errorf("NextKey() = %q, want empty", key)
	}
}
