package prompts

import (
	"strings"
	"testing"

	"github.com/invdb/agent/schema"
)

func testSchema() *schema.Descriptor {
	return &schema.Descriptor{
		Tables: []schema.Table{
			{
				Name: "projects",
				Columns: []schema.Column{
					{Name: "project_id", DataType: "integer"},
					{Name: "budget", DataType: "numeric", Nullable: true},
					{Name: "client_id", DataType: "integer"},
				},
				PrimaryKey: []string{"project_id"},
				ForeignKeys: []schema.ForeignKey{
					{Column: "client_id", RefTable: "clients", RefColumn: "client_id"},
				},
			},
		},
	}
}

func TestRender(t *testing.T) {
	text := Render(testSchema())

	for _, want := range []string{
		"- projects",
		"Primary Key: project_id",
		"budget: numeric (nullable)",
		"project_id: integer (NOT NULL)",
		"projects.client_id -> clients.client_id",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Render() missing %q:\n%s", want, text)
		}
	}
}

func TestBuildGeneratorPromptIncludesViolations(t *testing.T) {
	pb := NewPromptBuilder(Render(testSchema()))

	prompt := pb.BuildGeneratorPrompt("list projects", []string{
		`unknown_column: unknown column "phone"`,
	})

	if !strings.Contains(prompt, "rejected") {
		t.Error("retry prompt does not mention the rejection")
	}
	if !strings.Contains(prompt, `unknown column "phone"`) {
		t.Error("retry prompt does not carry the violation detail")
	}
	if !strings.Contains(prompt, "- projects") {
		t.Error("retry prompt does not carry the schema")
	}
}

func TestBuildGeneratorPromptFirstAttempt(t *testing.T) {
	pb := NewPromptBuilder(Render(testSchema()))

	prompt := pb.BuildGeneratorPrompt("list projects", nil)
	if strings.Contains(prompt, "previous attempt") {
		t.Error("first-attempt prompt mentions a previous attempt")
	}
}

func TestBuildEmptyResultPrompt(t *testing.T) {
	pb := NewPromptBuilder("")

	prompt := pb.BuildEmptyResultPrompt("projects from 2019", []string{"project_name", "budget"})
	if !strings.Contains(prompt, "0 rows") {
		t.Error("empty-result prompt does not mention 0 rows")
	}
	if !strings.Contains(prompt, "project_name, budget") {
		t.Error("empty-result prompt does not list the columns")
	}

	prompt = pb.BuildEmptyResultPrompt("anything", nil)
	if !strings.Contains(prompt, "N/A") {
		t.Error("empty-result prompt without columns should say N/A")
	}
}
