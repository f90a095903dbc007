package errors

import (
	"github.com/cockroachdb/errors"
)

// Wrap annotates err with msg. It returns nil when err is nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// Wrapf annotates err with a formatted message. It returns nil when err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

// Cause returns the innermost error in the chain.
func Cause(err error) error {
	return errors.Cause(err)
}
