package core

const (
	AlertNormal    AlertClass = "normal"
	AlertNearLimit AlertClass = "near_limit"
	AlertExceeded  AlertClass = "exceeded"
)

// AlertClass partitions budgets by how much of the limit is already spent.
type AlertClass string

// nearLimitThreshold is the spent/limit ratio at which a budget starts
// warning, expressed as a percentage.
const nearLimitThreshold = 80.0

// Percent returns spent/limit as a percentage for display. A zero limit maps
// to 0 to avoid dividing by zero.
func (b Budget) Percent() float64 {
	if b.Limit.Cents == 0 {
		return 0
	}
	return float64(b.Spent.Cents) / float64(b.Limit.Cents) * 100
}

// Remaining returns limit minus spent; negative when the budget is exceeded.
func (b Budget) Remaining() Money {
	return Money{Cents: b.Limit.Cents - b.Spent.Cents}
}

// Alert classifies the budget: exceeded when spent is strictly above the
// limit, near the limit from 80% up to and including 100%, normal below.
func (b Budget) Alert() AlertClass {
	if b.Spent.Cents > b.Limit.Cents {
		return AlertExceeded
	}
	if b.Percent() >= nearLimitThreshold {
		return AlertNearLimit
	}
	return AlertNormal
}
