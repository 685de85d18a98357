package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_EmptyContext(t *testing.T) {
	assert.Equal(t, NoContextAnswer, Extract("What is the grace period?", nil))
	assert.Equal(t, NoContextAnswer, Extract("Anything", []string{}))
}

func TestExtract_GracePeriod(t *testing.T) {
	tests := []struct {
		name    string
		context string
		want    string
	}{
		{
			name:    "of N days",
			context: "Premium is payable yearly. A grace period of 30 days is allowed after the due date.",
			want:    "A grace period of 30 days is provided for premium payment.",
		},
		{
			name:    "N days grace period",
			context: "The insurer allows a 15 day grace period for renewals.",
			want:    "A grace period of 15 days is provided for premium payment.",
		},
		{
			name:    "loose pattern",
			context: "Grace applies for renewal within 30 days of expiry.",
			want:    "A grace period of 30 days is provided for premium payment.",
		},
		{
			name:    "sentence fallback",
			context: "Coverage is annual. The grace period is thirty days from the due date. Claims are settled fast.",
			want:    "The grace period is thirty days from the due date",
		},
		{
			name:    "not found",
			context: "Premium is payable annually.",
			want:    GraceNotFoundAnswer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract("What is the grace period?", []string{tt.context}))
		})
	}
}

func TestExtract_WaitingPeriod(t *testing.T) {
	q := "What is the waiting period for pre-existing diseases?"

	got := Extract(q, []string{"There is a waiting period of 24 months for pre-existing diseases."})
	assert.Equal(t, "There is a waiting period of 24 months. There is a waiting period of 24 months for pre-existing diseases", got)
	assert.Contains(t, got, "24 months")

	got = Extract(q, []string{"Hernia is excluded. Waiting applies for two years after inception."})
	assert.Equal(t, "Waiting applies for two years after inception", got)

	got = Extract(q, []string{"No waiting is required for accidents."})
	assert.Equal(t, WaitingNotFoundAnswer, got)
}

func TestExtract_Coverage(t *testing.T) {
	q := "Is knee surgery covered by the policy?"
	context := "Short one. The policy covers dental work only. Knee surgery is covered by the policy after one year. Knee surgery is covered by the policy in all cases."

	// tie between the last two sentences keeps the first
	assert.Equal(t, "Knee surgery is covered by the policy after one year", Extract(q, []string{context}))

	assert.Equal(t, CoverageNotFoundAnswer, Extract(q, []string{"Too short. Also short."}))
	assert.Equal(t, CoverageNotFoundAnswer, Extract(q, []string{"Nothing in this line overlaps anything."}))
}

func TestExtract_Maternity(t *testing.T) {
	q := "Are maternity expenses reimbursed?"
	assert.Equal(t,
		"Maternity expenses are payable after 9 months",
		Extract(q, []string{"Room charges apply. Maternity expenses are payable after 9 months. Other text."}))
	assert.Equal(t, MaternityNotFoundAnswer, Extract(q, []string{"Nothing relevant here."}))
}

func TestExtract_RoomRent(t *testing.T) {
	q := "What is the room rent limit?"
	context := "Room rent is capped per day. Room rent is limited to 1% of the sum insured per day."

	assert.Equal(t, "Room rent is limited to 1% of the sum insured per day", Extract(q, []string{context}))
	assert.Equal(t, RoomRentNotFoundAnswer, Extract(q, []string{"Room rent is capped per day."}))
}

func TestExtract_General(t *testing.T) {
	q := "How does the policy define a hospital?"

	t.Run("highest overlap", func(t *testing.T) {
		context := "The policy defines many terms for clarity. A hospital is defined by the policy as an institution with beds. Unrelated sentence about premiums and the renewal process."
		assert.Equal(t, "A hospital is defined by the policy as an institution with beds", Extract(q, []string{context}))
	})

	t.Run("tie keeps first", func(t *testing.T) {
		context := "The policy lists each hospital in the network. The policy names each hospital for emergency care."
		assert.Equal(t, "The policy lists each hospital in the network", Extract(q, []string{context}))
	})

	t.Run("fallback to long sentence", func(t *testing.T) {
		context := "Tiny. This sentence is long enough to be returned when nothing else overlaps at all."
		assert.Equal(t, "This sentence is long enough to be returned when nothing else overlaps at all", Extract("Zebra?", []string{context}))
	})

	t.Run("not found", func(t *testing.T) {
		assert.Equal(t, GeneralNotFoundAnswer, Extract("Zebra?", []string{"Tiny. Also tiny."}))
	})
}

func TestExtract_UsesOnlyLeadingChunks(t *testing.T) {
	chunks := []string{
		"Premium is payable annually.",
		"Claims are paid in cash.",
		"Renewal is automatic.",
		"A grace period of 30 days is allowed.",
	}
	assert.Equal(t, GraceNotFoundAnswer, Extract("What is the grace period?", chunks))
	assert.Equal(t, "A grace period of 30 days is provided for premium payment.",
		New(4).Extract("What is the grace period?", chunks))
}

func TestExtract_ChunksJoinedAcrossBoundary(t *testing.T) {
	// chunks are joined with a blank line, not a sentence break
	chunks := []string{"The maternity benefit", "is available after two years"}
	assert.Equal(t, "The maternity benefit\n\nis available after two years",
		New(3).Extract("Tell me about maternity", chunks))
}

func TestNew_DefaultsContextSize(t *testing.T) {
	assert.Equal(t, DefaultContextChunks, New(0).contextChunks)
	assert.Equal(t, 5, New(5).contextChunks)
}

func TestWordSet(t *testing.T) {
	set := wordSet("Knee-surgery, KNEE surgery!")
	assert.Len(t, set, 2)
	assert.Contains(t, set, "knee")
	assert.Contains(t, set, "surgery")
}
