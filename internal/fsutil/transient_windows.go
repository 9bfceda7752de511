package fsutil

import (
	"syscall"

	"github.com/pkg/errors"
)

// Windows sharing and lock violations.
const (
	errorSharingViolation syscall.Errno = 32
	errorLockViolation    syscall.Errno = 33
)

func isLockError(err error) bool {
	return errors.Is(err, errorSharingViolation) || errors.Is(err, errorLockViolation)
}
