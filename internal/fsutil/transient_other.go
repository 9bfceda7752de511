//go:build !unix && !windows

package fsutil

func isLockError(error) bool {
	return false
}
