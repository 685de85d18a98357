package chunker

import (
	"strings"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

// tableKeywords mark a table as carrying policy terms worth indexing
var tableKeywords = []string{
	"premium", "coverage", "benefit", "limit", "amount", "period", "plan", "sum",
}

// IsMeaningfulTable reports whether a table has at least two rows and
// mentions one of the policy keywords anywhere in its cells.
func IsMeaningfulTable(table domain.Table) bool {
	if len(table) < 2 {
		return false
	}

	var cells []string
	for _, row := range table {
		for _, cell := range row {
			if cell != "" {
				cells = append(cells, cell)
			}
		}
	}
	flat := strings.ToLower(strings.Join(cells, " "))

	for _, keyword := range tableKeywords {
		if strings.Contains(flat, keyword) {
			return true
		}
	}
	return false
}

// FormatTable renders a table as a pipe-delimited grid of at most maxRows
// rows, prefixed with the surrounding page context when there is any.
func FormatTable(table domain.Table, context string, maxRows int) string {
	if len(table) == 0 {
		return ""
	}

	var b strings.Builder
	if context != "" {
		b.WriteString("Context: ")
		b.WriteString(context)
		b.WriteString("\n\n")
	}
	b.WriteString("Table:\n")

	rows := table
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	for _, row := range rows {
		clean := make([]string, len(row))
		for i, cell := range row {
			clean[i] = strings.TrimSpace(cell)
		}
		b.WriteString(strings.Join(clean, " | "))
		b.WriteString("\n")
	}

	return b.String()
}
