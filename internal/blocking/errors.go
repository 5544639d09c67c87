package blocking

import (
	"errors"
	"fmt"
)

// Sentinel kinds for blocking input errors. These allow errors.Is from callers.
var (
	// ErrInvalidArgument reports malformed constructor or call arguments.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrPrecondition reports an operation that needs a prior event or click.
	ErrPrecondition = errors.New("precondition violated")
	// ErrCollaborator wraps failures raised by the canvas or contour set.
	ErrCollaborator = errors.New("collaborator failure")
)

func collaboratorErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrCollaborator, op, err)
}

// resolveIndex maps a possibly negative index onto [0, n).
func resolveIndex(index, n int) (int, error) {
	if n == 0 {
		return 0, fmt.Errorf("%w: pop from empty log", ErrPrecondition)
	}
	i := index
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%w: index %d out of range for length %d", ErrPrecondition, index, n)
	}
	return i, nil
}
