package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Check turns a precomputed condition into a rule.
func Check(field string, ok bool, message string) Rule {
	return Rule{
		Check: func() bool { return ok },
		Error: ValidationError{Field: field, Message: message},
	}
}

// Required checks that value is not blank.
func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "field is required"},
	}
}

// MaxLen checks the length of value in characters, not bytes.
func MaxLen(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be at most %d characters long", max)},
	}
}

func Positive[T Numeric](field string, value T) Rule {
	return Rule{
		Check: func() bool { return value > 0 },
		Error: ValidationError{Field: field, Message: "must be positive"},
	}
}

// Between checks min <= value <= max.
func Between[T Numeric](field string, value, min, max T) Rule {
	return Rule{
		Check: func() bool { return value >= min && value <= max },
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be between %v and %v", min, max)},
	}
}

// OneOf checks that value is one of allowed.
func OneOf[T comparable](field string, value T, allowed []T) Rule {
	return Rule{
		Check: func() bool {
			for _, a := range allowed {
				if a == value {
					return true
				}
			}
			return false
		},
		Error: ValidationError{Field: field, Message: fmt.Sprintf("must be one of: %v", allowed)},
	}
}
