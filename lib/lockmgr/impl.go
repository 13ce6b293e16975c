package lockmgr

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/h5tree/lib/db"
	"github.com/google/uuid"
)

// lockPrefix namespaces lock records in the shared database
const lockPrefix = "lock:"

// lockRecord is the value stored for a held lock
type lockRecord struct {
	Owner   string `json:"owner"`
	Expires int64  `json:"expires,omitempty"` // unix nanos, 0 = never
}

type lockMgrImpl struct {
	db  db.KVDB
	mu  sync.Mutex
	now func() time.Time
}

// NewLockManager creates a lock manager that keeps its locks in the given
// database.
func NewLockManager(database db.KVDB) ILockManager {
	return &lockMgrImpl{
		db:  database,
		now: time.Now,
	}
}

func (lm *lockMgrImpl) AcquireLock(key string, ttl time.Duration) (bool, string, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	// Check if someone else holds the lock
	if _, held, err := lm.load(key); err != nil || held {
		return false, "", err
	}

	rec := lockRecord{Owner: uuid.NewString()}
	if ttl > 0 {
		rec.Expires = lm.now().Add(ttl).UnixNano()
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return false, "", err
	}
	if err := lm.db.Set(lockPrefix+key, raw); err != nil {
		return false, "", fmt.Errorf("failed to store lock %s: %w", key, err)
	}
	return true, rec.Owner, nil
}

func (lm *lockMgrImpl) ReleaseLock(key string, ownerID string) (bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	rec, held, err := lm.load(key)
	if err != nil || !held {
		return err == nil, err
	}

	// Check if the lock is owned by the caller
	if rec.Owner != ownerID {
		return false, nil
	}

	err = lm.db.Delete(lockPrefix + key)
	return err == nil, err
}

func (lm *lockMgrImpl) Owner(key string) (string, bool, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	rec, held, err := lm.load(key)
	return rec.Owner, held, err
}

// load reads the lock record of key. Expired records count as not held.
func (lm *lockMgrImpl) load(key string) (lockRecord, bool, error) {
	raw, found, err := lm.db.Get(lockPrefix + key)
	if err != nil || !found {
		return lockRecord{}, false, err
	}
	var rec lockRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return lockRecord{}, false, fmt.Errorf("corrupt lock record for %s: %w", key, err)
	}
	if rec.Expires != 0 && lm.now().UnixNano() >= rec.Expires {
		return lockRecord{}, false, nil
	}
	return rec, true, nil
}
