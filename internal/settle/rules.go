package settle

import "errors"

// Rejection reasons. Check wraps exactly one of these.
var (
	ErrMissingInput     = errors.New("claimed output not in pool")
	ErrInvalidSignature = errors.New("invalid input signature")
	ErrDoubleClaim      = errors.New("output claimed more than once")
	ErrNegativeOutput   = errors.New("negative output value")
	ErrValueInflation   = errors.New("outputs exceed inputs")
	ErrMalformedInput   = errors.New("malformed input")
)

// Rule names the validity condition a transaction failed.
type Rule int

// Rules in evaluation order. RuleNone means the transaction is valid.
const (
	RuleNone Rule = iota
	RuleMalformed
	RuleExistence
	RuleAuthorization
	RuleNoDoubleClaim
	RuleNonNegative
	RuleConservation
	RuleUnknown
)

func (r Rule) String() string {
	switch r {
	case RuleNone:
		return "none"
	case RuleMalformed:
		return "malformed"
	case RuleExistence:
		return "existence"
	case RuleAuthorization:
		return "authorization"
	case RuleNoDoubleClaim:
		return "no-double-claim"
	case RuleNonNegative:
		return "non-negative"
	case RuleConservation:
		return "conservation"
	default:
		return "unknown"
	}
}

// RuleOf maps an error returned by Check to the rule it reports.
func RuleOf(err error) Rule {
	switch {
	case err == nil:
		return RuleNone
	case errors.Is(err, ErrMalformedInput):
		return RuleMalformed
	case errors.Is(err, ErrMissingInput):
		return RuleExistence
	case errors.Is(err, ErrInvalidSignature):
		return RuleAuthorization
	case errors.Is(err, ErrDoubleClaim):
		return RuleNoDoubleClaim
	case errors.Is(err, ErrNegativeOutput):
		return RuleNonNegative
	case errors.Is(err, ErrValueInflation):
		return RuleConservation
	default:
		return RuleUnknown
	}
}
