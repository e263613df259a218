package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// CreateULID returns a time-sortable ULID encoded as a 26-character string.
// ULIDs identify deliveries at the transport level; domain envelopes carry
// UUIDs (see CreateUUID).
func CreateULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}

// CreateUUID returns a random UUID string. Every envelope gets one at
// construction time and it is never reused; consumers deduplicate on it.
func CreateUUID() string {
	return uuid.NewString()
}
