package service

// Priority weights are additive, not mutually exclusive: a customer holding
// two eligibility flags outranks one holding a single flag. Regular customers
// score zero. Ties are broken downstream by earliest registration (FIFO).
const (
	weightSeniorCitizen = 10
	weightPregnant      = 10
	weightPWD           = 10
)

// PriorityScore is a pure function of the eligibility flags: deterministic,
// total for every flag combination, no side effects.
func PriorityScore(seniorCitizen, pregnant, pwd bool) int {
	score := 0
	if seniorCitizen {
		score += weightSeniorCitizen
	}
	if pregnant {
		score += weightPregnant
	}
	if pwd {
		score += weightPWD
	}
	return score
}
