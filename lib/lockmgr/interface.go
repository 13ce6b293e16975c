package lockmgr

import "time"

// ILockManager defines the interface for a lockmgr provider.
type ILockManager interface {
	// AcquireLock acquires a lock for the given key. A ttl of zero means the
	// lock never expires. Returns whether the lock was acquired and the owner ID
	// needed to release it.
	AcquireLock(key string, ttl time.Duration) (ok bool, ownerID string, err error)

	// ReleaseLock releases the lock for the given key.
	// Return a boolean indicating whether the lock was released, and an error if any.
	// The method will also return true if the lock did not exist.
	ReleaseLock(key string, ownerID string) (ok bool, err error)

	// Owner returns the owner of a held lock. Expired locks are not held.
	Owner(key string) (ownerID string, held bool, err error)
}
