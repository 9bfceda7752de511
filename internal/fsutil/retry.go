package fsutil

import (
	"io/fs"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Policy bounds how often and how patiently a filesystem call is retried.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultPolicy is used until SetPolicy is called.
var DefaultPolicy = Policy{Attempts: 10, Delay: 100 * time.Millisecond}

var (
	policyMu sync.RWMutex
	policy   = DefaultPolicy
)

// SetPolicy replaces the retry policy used by every helper in this package.
// Attempts below 1 are treated as 1.
func SetPolicy(p Policy) {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	policyMu.Lock()
	policy = p
	policyMu.Unlock()
}

// CurrentPolicy returns the active retry policy.
func CurrentPolicy() Policy {
	policyMu.RLock()
	defer policyMu.RUnlock()
	return policy
}

// Retry calls op until it succeeds, shouldRetry rejects its error, or
// maxAttempts calls have been made, sleeping delay between calls. The last
// error is returned unchanged.
func Retry[T any](op func() (T, error), shouldRetry func(error) bool, maxAttempts int, delay time.Duration) (T, error) {
	var (
		result T
		err    error
	)
	for attempt := 1; ; attempt++ {
		result, err = op()
		if err == nil || attempt >= maxAttempts || !shouldRetry(err) {
			return result, err
		}
		time.Sleep(delay)
	}
}

// Do runs op under the active policy, retrying transient errors.
func Do(op func() error) error {
	p := CurrentPolicy()
	_, err := Retry(func() (struct{}, error) {
		return struct{}{}, op()
	}, IsTransient, p.Attempts, p.Delay)
	return err
}

// Get runs op under the active policy, retrying transient errors.
func Get[T any](op func() (T, error)) (T, error) {
	p := CurrentPolicy()
	return Retry(op, IsTransient, p.Attempts, p.Delay)
}

// IsTransient reports whether err belongs to the lock-held or
// permission-denied classes that usually clear up on their own.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, fs.ErrPermission) {
		return true
	}
	return isLockError(err)
}
