package kvlock

import (
	"errors"
	"fmt"
	"time"
)

// ErrLockTimeout is matched by every LockTimeoutError
var ErrLockTimeout = errors.New(`lock acquisition timed out`)

// LockTimeoutError is returned when the lock was not obtained in time
type LockTimeoutError struct {
	Name    string
	Timeout time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("lock %q timed out after %s", e.Name, e.Timeout)
}

// Is makes errors.Is(err, ErrLockTimeout) work
func (e *LockTimeoutError) Is(target error) bool {
	return target == ErrLockTimeout
}
