package security

import (
	"errors"
	"fmt"
)

var (
	// ErrRepository tags failures reading or writing the state repository.
	ErrRepository = errors.New("repository failure")
	// ErrClassifier tags failures of the image classifier.
	ErrClassifier = errors.New("classifier failure")
	// ErrInvalidArgument tags calls with nil or unknown values.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownSensor is returned by lookups of sensors that are not tracked.
	ErrUnknownSensor = errors.New("unknown sensor")
)

// repositoryError wraps err with ErrRepository and the failed operation.
func repositoryError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRepository, op, err)
}

// invalidArgument builds an ErrInvalidArgument error.
func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
