// Package coreerr provides curated, categorised errors for the emulator
// core. It mirrors the curated-error idiom used elsewhere in this family
// of emulators: a message template plus substitution values, so that
// callers can match on the template (the "head") without caring about the
// specific values that were interpolated into it.
package coreerr

import (
	"fmt"
	"strings"
)

// Values holds the substitution arguments for a curated error.
type Values []interface{}

type curated struct {
	message string
	values  Values
}

// Errorf creates a new curated error from one of the message templates in
// messages.go (or any other format string).
func Errorf(message string, values ...interface{}) error {
	return curated{message: message, values: values}
}

// Error implements the error interface. Adjacent duplicate message parts
// (common when one curated error wraps another with the same head) are
// collapsed.
func (e curated) Error() string {
	s := fmt.Errorf(e.message, e.values...).Error()

	p := strings.SplitN(s, ": ", 3)
	if len(p) > 1 && p[0] == p[1] {
		return strings.Join(p[1:], ": ")
	}
	return strings.Join(p, ": ")
}

// Head returns the message template of a curated error, or the plain
// Error() string if err was not created by this package.
func Head(err error) string {
	if e, ok := err.(curated); ok {
		return e.message
	}
	return err.Error()
}

// IsAny reports whether err was created by this package.
func IsAny(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(curated)
	return ok
}

// Is reports whether err's head matches the given message template.
func Is(err error, head string) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(curated); ok {
		return e.message == head
	}
	return false
}

// Has reports whether msg appears as the head of err or of any curated
// error nested in its values.
func Has(err error, msg string) bool {
	if err == nil || !IsAny(err) {
		return false
	}
	if Is(err, msg) {
		return true
	}
	for _, v := range err.(curated).values {
		if e, ok := v.(curated); ok {
			if Has(e, msg) {
				return true
			}
		}
	}
	return false
}
