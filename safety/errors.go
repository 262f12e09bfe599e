package safety

import "github.com/pkg/errors"

func errNegative(field string) error {
	return errors.Errorf("%s cannot be negative", field)
}

func errOutOfRange(field, bounds string) error {
	return errors.Errorf("%s must be in %s", field, bounds)
}
