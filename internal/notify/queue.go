package notify

import (
	"sync"
	"time"

	"basketbay/internal/util"

	"go.uber.org/zap"
)

// Level is the visual severity of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one transient message shown to the shopper.
type Notification struct {
	Level     Level     `json:"type"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Queue is a bounded FIFO of notifications with at most one active entry.
// The head of the queue is the active notification; Dismiss advances it.
type Queue struct {
	mu       sync.Mutex
	capacity int
	entries  []Notification
	evicted  int
	logger   *zap.Logger
}

// NewQueue creates a queue holding at most capacity notifications
func NewQueue(capacity int) *Queue {
	if capacity < 2 {
		capacity = 2
	}
	return &Queue{
		capacity: capacity,
		entries:  make([]Notification, 0, capacity),
		logger:   util.GetLogger(),
	}
}

// Push appends a notification. When the queue is full the oldest pending
// entry is evicted; the active one is never replaced.
func (q *Queue) Push(level Level, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == q.capacity {
		dropped := q.entries[1]
		q.entries = append(q.entries[:1], q.entries[2:]...)
		q.evicted++
		util.NotificationsEvictedTotal.Inc()
		q.logger.Warn("Notification queue full, evicted oldest pending entry",
			zap.String("level", string(dropped.Level)),
			zap.String("message", dropped.Message))
	}

	q.entries = append(q.entries, Notification{
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// Success pushes a success notification
func (q *Queue) Success(message string) { q.Push(LevelSuccess, message) }

// Warning pushes a warning notification
func (q *Queue) Warning(message string) { q.Push(LevelWarning, message) }

// Error pushes an error notification
func (q *Queue) Error(message string) { q.Push(LevelError, message) }

// Active returns the notification currently on display.
func (q *Queue) Active() (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return Notification{}, false
	}
	return q.entries[0], true
}

// Latest returns the most recently pushed notification, which is the one
// describing the outcome of the request that just ran.
func (q *Queue) Latest() (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return Notification{}, false
	}
	return q.entries[len(q.entries)-1], true
}

// Dismiss hides the active notification and promotes the next one.
func (q *Queue) Dismiss() (Notification, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return Notification{}, false
	}
	q.entries = q.entries[1:]
	if len(q.entries) == 0 {
		return Notification{}, false
	}
	return q.entries[0], true
}

// Pending returns the number of notifications queued behind the active one.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return 0
	}
	return len(q.entries) - 1
}

// Evicted returns how many pending notifications were dropped for capacity
func (q *Queue) Evicted() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evicted
}

// Drain removes and returns every queued notification, active first.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Notification, len(q.entries))
	copy(out, q.entries)
	q.entries = q.entries[:0]
	return out
}
