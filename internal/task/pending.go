package task

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var continuationsBucket = []byte("continuations")

// PendingCache holds continuations keyed by parent task id: pending[id] is
// the list of successor Tasks released once a Task with that id returns
// result.success == true (spec §3). It is additionally checkpointed to a
// durable bbolt store so a scheduler restart does not lose continuations
// for Tasks that were in flight — cronplus's StateStore served the
// equivalent role (recording per-file pipeline progress across restarts)
// for its file watcher; generalized here to index by parent task id
// instead of (task id, path, checksum).
type PendingCache struct {
	mu     sync.Mutex
	byID   map[int64][]Task
	bolt   *bolt.DB // nil if running without a durable checkpoint
}

// NewPendingCache creates an in-memory PendingCache with no durable
// checkpoint; continuations are lost on process restart.
func NewPendingCache() *PendingCache {
	return &PendingCache{byID: map[int64][]Task{}}
}

// OpenPendingCache creates a PendingCache checkpointed to a bbolt file at
// path, loading any continuations persisted by a previous run.
func OpenPendingCache(path string) (*PendingCache, error) {
	if path == "" {
		return nil, errors.New("pending cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir pending cache dir: %w", err)
	}
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open pending cache: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, e := tx.CreateBucketIfNotExists(continuationsBucket)
		return e
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	pc := &PendingCache{byID: map[int64][]Task{}, bolt: db}
	if err := pc.loadFromDisk(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return pc, nil
}

// OpenPendingCacheReadOnly opens the checkpoint at path for read access
// alongside the scheduler process that owns the write handle (bbolt allows
// one writer plus concurrent read-only openers of the same file). Used by
// app_data's AppRunner, a separate OS process from the scheduler, to answer
// router.PendingQueryer's ContinuationKind without round-tripping through
// the scheduler itself.
func OpenPendingCacheReadOnly(path string) (*PendingCache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open pending cache read-only: %w", err)
	}
	pc := &PendingCache{byID: map[int64][]Task{}, bolt: db}
	if err := pc.loadFromDisk(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return pc, nil
}

func (pc *PendingCache) loadFromDisk() error {
	return pc.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(continuationsBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var successors []Task
			if err := json.Unmarshal(v, &successors); err != nil {
				return err
			}
			pc.byID[int64(binary.BigEndian.Uint64(k))] = successors
			return nil
		})
	})
}

// Register stores successors to be released once parentID's Task succeeds.
// An empty successors slice still records that parentID is being tracked
// (the make_tasks cleanup task has no continuation, but the scheduler still
// needs to know it's in flight — see Contains).
func (pc *PendingCache) Register(parentID int64, successors []Task) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.byID[parentID] = successors
	return pc.persist(parentID, successors)
}

// Release returns and removes the successors registered for parentID, or
// (nil, false) if parentID has no registered continuation.
func (pc *PendingCache) Release(parentID int64) ([]Task, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	successors, ok := pc.byID[parentID]
	if !ok {
		return nil, false
	}
	delete(pc.byID, parentID)
	if pc.bolt != nil {
		_ = pc.bolt.Update(func(tx *bolt.Tx) error {
			return tx.Bucket(continuationsBucket).Delete(idKey(parentID))
		})
	}
	return successors, true
}

// Contains reports whether parentID has a registered (possibly empty)
// continuation, i.e. whether it is a Task the scheduler is still awaiting.
func (pc *PendingCache) Contains(parentID int64) bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	_, ok := pc.byID[parentID]
	return ok
}

// Len reports how many parent ids currently have a registered continuation.
func (pc *PendingCache) Len() int {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return len(pc.byID)
}

// ActiveTempPaths collects every "to"/"path" filesystem argument appearing
// in any registered continuation, used at startup to tell a restored temp
// directory with a live continuation apart from an orphan one (spec §4.1:
// "the scheduler reclaims these by detecting <temp>/<cname> directories
// with no matching in-flight Task on startup").
func (pc *PendingCache) ActiveTempPaths() map[string]bool {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	active := map[string]bool{}
	for _, successors := range pc.byID {
		for _, t := range successors {
			if to, ok := t.Args["to"].(string); ok && to != "" {
				active[to] = true
			}
			if p, ok := t.Args["path"].(string); ok && p != "" {
				active[p] = true
			}
		}
	}
	return active
}

// ContinuationKind implements router.PendingQueryer: the app name of
// parentID's next registered continuation, or "" if there is none. When
// backed by a durable checkpoint this always re-reads bbolt directly
// rather than the in-memory map, since a read-only opener in another
// process (app_data's AppRunner) never observes the scheduler's in-memory
// writes — only the checkpoint file itself is shared.
func (pc *PendingCache) ContinuationKind(parentID int64) string {
	next, ok := pc.NextTask(parentID)
	if !ok {
		return ""
	}
	return next.AppName
}

// NextTask returns the registered continuation's full Task (not just its
// app name), so a caller routing across a process boundary (app_data's
// AppRunner enqueueing the file_mover.remove it doesn't itself carry) can
// enqueue the actual successor rather than reconstruct it. Returns
// (Task{}, false) if parentID has no continuation or its continuation list
// is empty.
func (pc *PendingCache) NextTask(parentID int64) (Task, bool) {
	if pc.bolt == nil {
		pc.mu.Lock()
		defer pc.mu.Unlock()
		successors, ok := pc.byID[parentID]
		if !ok || len(successors) == 0 {
			return Task{}, false
		}
		return successors[0], true
	}

	var next Task
	found := false
	_ = pc.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(continuationsBucket)
		if b == nil {
			return nil
		}
		v := b.Get(idKey(parentID))
		if v == nil {
			return nil
		}
		var successors []Task
		if err := json.Unmarshal(v, &successors); err != nil {
			return err
		}
		if len(successors) > 0 {
			next = successors[0]
			found = true
		}
		return nil
	})
	return next, found
}

func (pc *PendingCache) persist(parentID int64, successors []Task) error {
	if pc.bolt == nil {
		return nil
	}
	data, err := json.Marshal(successors)
	if err != nil {
		return fmt.Errorf("marshal continuation: %w", err)
	}
	return pc.bolt.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(continuationsBucket).Put(idKey(parentID), data)
	})
}

// Close releases the durable checkpoint, if any.
func (pc *PendingCache) Close() error {
	if pc.bolt == nil {
		return nil
	}
	return pc.bolt.Close()
}

func idKey(id int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}
