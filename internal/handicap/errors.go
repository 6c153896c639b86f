package handicap

import "fmt"

type ErrorKind int

const (
	KindMissingRating ErrorKind = iota + 1
	KindEmptyHoleSet
	KindTooManyHoles
	KindNoDifferentials
)

func (k ErrorKind) String() string {
	switch k {
	case KindMissingRating:
		return "missing_rating"
	case KindEmptyHoleSet:
		return "empty_hole_set"
	case KindTooManyHoles:
		return "too_many_holes"
	case KindNoDifferentials:
		return "no_differentials"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// CalculationError reports an input the rules cannot be applied to.
// Two errors are equal under errors.Is when their kinds match.
type CalculationError struct {
	Kind ErrorKind
	Msg  string
}

func (e *CalculationError) Error() string {
	if e.Msg == "" {
		return "handicap: " + e.Kind.String()
	}
	return "handicap: " + e.Msg
}

func (e *CalculationError) Is(target error) bool {
	t, ok := target.(*CalculationError)
	return ok && t.Kind == e.Kind
}

var (
	ErrMissingRating   = &CalculationError{Kind: KindMissingRating}
	ErrEmptyHoleSet    = &CalculationError{Kind: KindEmptyHoleSet}
	ErrTooManyHoles    = &CalculationError{Kind: KindTooManyHoles}
	ErrNoDifferentials = &CalculationError{Kind: KindNoDifferentials}
)
