package config

import "github.com/pkg/errors"

// ErrUnknownBone is returned when a config names a bone the skeleton does not have.
var ErrUnknownBone = errors.New("unknown bone")

// newValidationError wraps err with the path of the config field that failed.
func newValidationError(path string, err error) error {
	return errors.Wrapf(err, "error validating %q", path)
}

func newFieldRequiredError(path, field string) error {
	return newValidationError(path, errors.Errorf("%q is required", field))
}
