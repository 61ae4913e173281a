package task

import (
	"sync"
	"time"
)

// tickDuration is 100ns, i.e. 10^-7 seconds, the unit spec §3 specifies for
// Task ids.
const tickDuration = 100 * time.Nanosecond

var (
	idMu   sync.Mutex
	lastID int64
)

// NewID returns a monotonic 100ns-tick timestamp since the Unix epoch,
// strictly greater than any value previously returned by this process.
// Grounded on the teacher's handleFilePipeline correlation id
// (fmt.Sprintf("%s-%d", t.ID, time.Now().UnixNano())) — generalized into a
// dedicated generator because Sonicat uses the id as a primary key (the
// PendingCache index and ordering guarantee depend on it), so a bare
// time.Now() read is not enough: on platforms where the clock doesn't
// advance between two calls, two Tasks would collide. Holding the last
// issued id and bumping it by one tick guards against that.
func NewID() int64 {
	idMu.Lock()
	defer idMu.Unlock()

	now := time.Now().UnixNano() / int64(tickDuration)
	if now <= lastID {
		now = lastID + 1
	}
	lastID = now
	return now
}
