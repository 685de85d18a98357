package domain

// Intent is the classified purpose of a question
type Intent int

const (
	IntentGeneral Intent = iota
	IntentGracePeriod
	IntentWaitingPeriod
	IntentCoverage
	IntentMaternity
	IntentRoomRent
)

// String returns the intent name used in logs
func (i Intent) String() string {
	switch i {
	case IntentGracePeriod:
		return "grace_period"
	case IntentWaitingPeriod:
		return "waiting_period"
	case IntentCoverage:
		return "coverage"
	case IntentMaternity:
		return "maternity"
	case IntentRoomRent:
		return "room_rent"
	default:
		return "general"
	}
}
