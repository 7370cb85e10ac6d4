package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultCapacity = 10000
	DefaultRetain   = 8000
)

// Sink: узкий интерфейс внешнего хранилища, куда дублируются записи.
// Реализация обязана не блокировать вызывающего (см. AgentFS).
type Sink interface {
	Log(entry Entry)
}

// Trail: ограниченный append-only журнал решений в памяти.
// При переполнении самые старые записи удаляются пачкой до размера retain,
// так что Len() <= capacity всегда, а последняя запись всегда доступна.
type Trail struct {
	mu       sync.Mutex
	entries  []Entry
	capacity int
	retain   int

	now  func() time.Time
	sink Sink
}

type TrailOption func(*Trail)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) TrailOption {
	return func(t *Trail) { t.now = now }
}

// WithSink включает дублирование записей во внешнее хранилище.
func WithSink(s Sink) TrailOption {
	return func(t *Trail) { t.sink = s }
}

// NewTrail создает журнал. retain вне (0, capacity] приравнивается к capacity,
// что дает строгий FIFO по одной записи.
func NewTrail(capacity, retain int, opts ...TrailOption) *Trail {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if retain <= 0 || retain > capacity {
		retain = capacity
	}
	t := &Trail{
		entries:  make([]Entry, 0, 64),
		capacity: capacity,
		retain:   retain,
		now:      time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Append добавляет запись, проставляя ID и время, если они не заданы.
// Возвращает сохраненную копию.
func (t *Trail) Append(e Entry) Entry {
	e = e.clone()

	t.mu.Lock()
	defer t.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = t.now()
	}

	t.entries = append(t.entries, e)
	if len(t.entries) > t.capacity {
		// Пакетная обрезка: копируем хвост в новый срез, чтобы старые записи ушли в GC.
		tail := t.entries[len(t.entries)-t.retain:]
		next := make([]Entry, len(tail), t.capacity+1)
		copy(next, tail)
		t.entries = next
	}

	// Под замком, чтобы порядок во внешнем хранилище совпадал с порядком журнала.
	if t.sink != nil {
		t.sink.Log(e.clone())
	}
	return e.clone()
}

func (t *Trail) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *Trail) Capacity() int {
	return t.capacity
}

// RecentCount: сколько записей сделано не раньше, чем window назад.
func (t *Trail) RecentCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-window)
	n := 0
	for i := range t.entries {
		if !t.entries[i].Timestamp.Before(cutoff) {
			n++
		}
	}
	return n
}

// Latest возвращает до n последних записей, самая новая идет последней.
func (t *Trail) Latest(n int) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n <= 0 || n > len(t.entries) {
		n = len(t.entries)
	}
	src := t.entries[len(t.entries)-n:]
	out := make([]Entry, 0, n)
	for _, e := range src {
		out = append(out, e.clone())
	}
	return out
}
