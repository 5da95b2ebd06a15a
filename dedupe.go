package kbioreg

import (
	"github.com/remyschwab/kbioreg/internal/pathstore"
)

// MaxInMemoryMatrixSize (default : 100 MB)
var MaxInMemoryMatrixSize = 100 * 1024 * 1024

// PathStoreBackend stores encoded k-mer paths while the matrix is
// deduplicated.
type PathStoreBackend interface {
	// Upsert add/update path to backend/database
	Upsert(elem string)
	// Execute given callback on each element while iterating
	IterCallback(callback func(elem string))
	// Cleanup cleans any residuals after deduping
	Cleanup()
}

// PathDedupe removes duplicate k-mer paths from the enumerated matrix.
// Two paths are equal iff their encoded k-mer sequences are equal.
type PathDedupe struct {
	receive <-chan string
	backend PathStoreBackend
}

// Drains channel and tries to dedupe it
func (d *PathDedupe) Drain() {
	for {
		val, ok := <-d.receive
		if !ok {
			break
		}
		d.backend.Upsert(val)
	}
}

// GetResults iterates over deduped paths and returns results
func (d *PathDedupe) GetResults() <-chan string {
	send := make(chan string, 100)
	go func() {
		defer close(send)
		d.backend.IterCallback(func(elem string) {
			send <- elem
		})
		d.backend.Cleanup()
	}()
	return send
}

// NewPathDedupe returns a dedupe instance which removes all duplicate
// paths. byteLen is the estimated matrix size in bytes; matrices expected
// to outgrow MaxInMemoryMatrixSize are spilled to a temporary LevelDB
// store instead of process memory.
func NewPathDedupe(ch <-chan string, byteLen int) *PathDedupe {
	d := &PathDedupe{
		receive: ch,
	}
	if byteLen <= MaxInMemoryMatrixSize {
		d.backend = pathstore.NewMapBackend()
	} else {
		d.backend = pathstore.NewLevelDBBackend()
	}
	return d
}
