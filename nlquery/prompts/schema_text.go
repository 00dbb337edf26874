package prompts

import (
	"fmt"
	"strings"

	"github.com/invdb/agent/schema"
)

// Render turns a schema Descriptor into the text block injected into
// every prompt. Tables keep their catalog order so the output is
// stable for a given snapshot.
func Render(desc *schema.Descriptor) string {
	var b strings.Builder
	b.WriteString("Tables and Their Relationships:\n")

	for _, table := range desc.Tables {
		fmt.Fprintf(&b, "\n- %s\n", table.Name)
		if len(table.PrimaryKey) > 0 {
			fmt.Fprintf(&b, "  Primary Key: %s\n", strings.Join(table.PrimaryKey, ", "))
		}
		b.WriteString("  Columns:\n")
		for _, col := range table.Columns {
			nullable := "NOT NULL"
			if col.Nullable {
				nullable = "nullable"
			}
			fmt.Fprintf(&b, "    - %s: %s (%s)\n", col.Name, col.DataType, nullable)
		}
		for _, fk := range table.ForeignKeys {
			fmt.Fprintf(&b, "  References: %s.%s -> %s.%s\n",
				table.Name, fk.Column, fk.RefTable, fk.RefColumn)
		}
	}

	return b.String()
}
