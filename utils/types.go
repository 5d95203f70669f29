package utils

import (
	"reflect"

	"github.com/pkg/errors"
)

// AssertType returns from as a T, or an error naming both types when it is not one.
func AssertType[T any](from interface{}) (T, error) {
	if asserted, ok := from.(T); ok {
		return asserted, nil
	}
	var zero T
	return zero, NewUnexpectedTypeError[T](from)
}

// NewUnexpectedTypeError reports that actual is not an ExpectedT. ExpectedT may be an interface.
func NewUnexpectedTypeError[ExpectedT any](actual interface{}) error {
	expected := reflect.TypeOf((*ExpectedT)(nil)).Elem()
	return errors.Errorf("expected %s but got %T", expected, actual)
}
