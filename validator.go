package virtualtools

import "math"

// ExactValidator requires the computed value to equal the expected value exactly.
// Floating-point results (SQRT, QUOTIENT, AVG) only validate when the caller
// supplies the identical float64.
type ExactValidator struct{}

// Validate implements Validator. A nil expected value never validates.
func (ExactValidator) Validate(computed float64, expected *float64) bool {
	if expected == nil {
		return false
	}
	return computed == *expected
}

// ToleranceValidator accepts values within an absolute Epsilon of the expected value.
type ToleranceValidator struct {
	Epsilon float64
}

// Validate implements Validator. A nil expected value never validates.
func (v ToleranceValidator) Validate(computed float64, expected *float64) bool {
	if expected == nil {
		return false
	}
	if computed == *expected {
		return true
	}
	if math.IsNaN(computed) || math.IsNaN(*expected) {
		return false
	}
	return math.Abs(computed-*expected) <= v.Epsilon
}

// NewValidator returns an ExactValidator for tolerance <= 0 and a ToleranceValidator otherwise.
func NewValidator(tolerance float64) Validator {
	if tolerance <= 0 {
		return ExactValidator{}
	}
	return ToleranceValidator{Epsilon: tolerance}
}
