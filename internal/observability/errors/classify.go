// Package errors derives stable error class names for metric tags and task failure metadata.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"
)

// Class names for context errors, which otherwise surface as unexported runtime types.
const (
	ClassTimeout  = "timeout"
	ClassCanceled = "canceled"
	ClassUnknown  = "unknown"
)

// Classify returns a normalized name for err: context errors map to fixed classes, anything else
// to the package-qualified type of the innermost wrapped error in snake case.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case goerrors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case goerrors.Is(err, context.Canceled):
		return ClassCanceled
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}
	return typeName(err)
}

func typeName(err error) string {
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.String() == "" {
		return ClassUnknown
	}
	return strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
}
