// Package lockmgr implements named locks on top of a db.KVDB. The remote
// backend server uses it to allow only one writing session per file.
//
// Core Functionality:
//   - Lock acquisition that hands out a random owner ID
//   - Optional expiration of locks through a ttl
//   - Safe release operations that verify ownership
//
// Implementation Approach:
//
//	Every lock is one record under the "lock:" prefix holding the owner ID
//	and the expiry time as JSON. The check and the write of AcquireLock run
//	under a mutex of the lock manager, so all callers sharing a lock manager
//	see consistent results. Expired records are treated as free and get
//	overwritten by the next AcquireLock.
//
// Usage Example:
//
//	locks := lockmgr.NewLockManager(maple.NewMapleDB(nil))
//
//	acquired, ownerID, err := locks.AcquireLock("data/scan.h5", 0)
//	if err != nil {
//	    // Handle error
//	}
//
//	if acquired {
//	    // ...
//	    released, err := locks.ReleaseLock("data/scan.h5", ownerID)
//	}
package lockmgr
