package constants

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

const DefaultPriority = PriorityMedium

// Rank orders priorities by urgency: high=1, medium=2, low=3.
// Anything else ranks after low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

func (p Priority) Valid() bool {
	return p.Rank() < 4
}
