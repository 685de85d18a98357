package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/policyqa/internal/core/domain"
)

func TestIsMeaningfulTable(t *testing.T) {
	tests := []struct {
		name  string
		table domain.Table
		want  bool
	}{
		{"numeric only", domain.Table{{"1", "2"}, {"3", "4"}}, false},
		{"whitespace cells", domain.Table{{" ", ""}, {"", " "}}, false},
		{"sum insured", domain.Table{{"Plan", "Sum Insured"}, {"Basic", "500000"}}, true},
		{"keyword in body, mixed case", domain.Table{{"Item", "Value"}, {"Annual PREMIUM", "12000"}}, true},
		{"single row with keyword", domain.Table{{"Premium", "12000"}}, false},
		{"empty", domain.Table{}, false},
		{"no keyword", domain.Table{{"Name", "Age"}, {"Asha", "34"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMeaningfulTable(tt.table))
		})
	}
}

func TestFormatTable_NoContext(t *testing.T) {
	table := domain.Table{{" Plan ", "Limit"}, {"Gold", ""}}
	assert.Equal(t, "Table:\nPlan | Limit\nGold | \n", FormatTable(table, "", 15))
}

func TestFormatTable_RowLimit(t *testing.T) {
	table := domain.Table{{"Benefit", "Amount"}}
	for i := 0; i < 20; i++ {
		table = append(table, []string{fmt.Sprintf("row%d", i), "100"})
	}

	out := FormatTable(table, "", 15)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

	// "Table:" header plus 15 rows
	assert.Len(t, lines, 16)
	assert.Equal(t, "row13 | 100", lines[15])
}

func TestFormatTable_Empty(t *testing.T) {
	assert.Equal(t, "", FormatTable(nil, "ctx", 15))
}

func TestChunk_TableContextTruncated(t *testing.T) {
	c := New(DefaultConfig())
	long := strings.Repeat("a", 300)
	table := domain.Table{{"Plan", "Premium"}, {"Silver", "9000"}}

	chunks := c.Chunk([]domain.Page{{Number: 4, Text: long, Tables: []domain.Table{table}}})

	assert.Equal(t, "table_4_0", chunks[0].ID)
	assert.True(t, strings.HasPrefix(chunks[0].Text, "Context: "+strings.Repeat("a", 200)+"\n\nTable:\n"))
}
