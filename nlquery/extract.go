package nlquery

import "strings"

// ExtractSQL strips a markdown code fence from a model response.
// Models wrap SQL in ```sql, ```SQL, ```postgresql or bare ``` blocks
// depending on mood; a response without a fence is returned as-is.
func ExtractSQL(response string) string {
	response = strings.TrimSpace(response)

	fences := []string{"```sql", "```SQL", "```postgresql", "```"}
	for _, fence := range fences {
		if !strings.HasPrefix(response, fence) {
			continue
		}
		body := strings.TrimPrefix(response, fence)
		if idx := strings.LastIndex(body, "```"); idx != -1 {
			body = body[:idx]
		}
		return strings.TrimSpace(body)
	}

	return response
}
