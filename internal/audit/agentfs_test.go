package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	mu      sync.Mutex
	batches [][]Entry
	fails   int
	calls   int
}

func (s *fakeStorage) WriteBatch(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.fails > 0 {
		s.fails--
		return errors.New("db unavailable")
	}
	s.batches = append(s.batches, append([]Entry(nil), entries...))
	return nil
}

func (s *fakeStorage) written() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Entry
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

func TestAgentFS_BatchesAndDrainsOnStop(t *testing.T) {
	store := &fakeStorage{}
	fs := NewAgentFS(store, AgentFSConfig{BufferSize: 100, BatchSize: 2, FlushInterval: time.Hour}, nil)
	fs.Start()

	for i := 0; i < 5; i++ {
		fs.Log(Entry{ID: fmt.Sprintf("e%d", i)})
	}
	fs.Stop()

	got := store.written()
	require.Len(t, got, 5)
	for i, e := range got {
		assert.Equal(t, fmt.Sprintf("e%d", i), e.ID)
	}

	sizes := make([]int, 0, len(store.batches))
	for _, b := range store.batches {
		sizes = append(sizes, len(b))
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Zero(t, fs.Dropped())
}

func TestAgentFS_FlushesOnInterval(t *testing.T) {
	store := &fakeStorage{}
	fs := NewAgentFS(store, AgentFSConfig{BatchSize: 100, FlushInterval: 10 * time.Millisecond}, nil)
	fs.Start()
	defer fs.Stop()

	fs.Log(Entry{ID: "tick"})

	assert.Eventually(t, func() bool {
		return len(store.written()) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestAgentFS_ShedsLoadWhenFull(t *testing.T) {
	store := &fakeStorage{}
	// Воркер не запущен: буфер никто не читает.
	fs := NewAgentFS(store, AgentFSConfig{BufferSize: 1}, nil)

	fs.Log(Entry{ID: "1"})
	fs.Log(Entry{ID: "2"})
	fs.Log(Entry{ID: "3"})

	assert.Equal(t, 1, fs.Pending())
	assert.Equal(t, int64(2), fs.Dropped())

	fs.Stop()
	fs.Stop()
	fs.Log(Entry{ID: "late"})
	assert.Equal(t, int64(3), fs.Dropped())
}

func TestAgentFS_StorageErrorDoesNotStopWorker(t *testing.T) {
	store := &fakeStorage{fails: 1}
	fs := NewAgentFS(store, AgentFSConfig{BatchSize: 1, FlushInterval: time.Hour}, nil)
	fs.Start()

	fs.Log(Entry{ID: "lost"})
	fs.Log(Entry{ID: "kept"})
	fs.Stop()

	got := store.written()
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].ID)
}
