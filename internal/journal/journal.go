package journal

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"hftnet/pkg/exception"
	"hftnet/pkg/socket"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
)

const (
	defaultQueueSize     = 1024
	defaultBatchSize     = 64
	defaultFlushInterval = time.Second
)

// Kind is the lifecycle event type.
type Kind string

const (
	KindConnect    Kind = "connect"
	KindReconnect  Kind = "reconnect"
	KindDisconnect Kind = "disconnect"
)

// Event is one client lifecycle transition.
type Event struct {
	ID       string
	ClientID string
	URL      string
	Kind     Kind
	Mode     socket.Mode
	At       time.Time
	Stats    socket.StatsSnapshot
}

// Store persists batches of events.
type Store interface {
	Append(ctx context.Context, events []Event) error
	Close() error
}

// Option tunes the journal queue.
type Option struct {
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
}

// Journal records lifecycle events asynchronously and flushes them to a Store in batches.
// Recording never blocks; events are dropped when the queue is full.
type Journal struct {
	store         Store
	queue         chan Event
	batchSize     int
	flushInterval time.Duration

	mu      sync.RWMutex
	closed  bool
	done    chan struct{}
	dropped atomic.Uint64
	failed  atomic.Uint64

	storeOnce sync.Once
	storeErr  error
}

// New starts a journal writing to store.
func New(store Store, opt Option) (*Journal, error) {
	if store == nil {
		return nil, errors.Wrap(exception.ErrNilInstance, "journal store")
	}
	if opt.QueueSize <= 0 {
		opt.QueueSize = defaultQueueSize
	}
	if opt.BatchSize <= 0 {
		opt.BatchSize = defaultBatchSize
	}
	if opt.FlushInterval <= 0 {
		opt.FlushInterval = defaultFlushInterval
	}
	j := &Journal{
		store:         store,
		queue:         make(chan Event, opt.QueueSize),
		batchSize:     opt.BatchSize,
		flushInterval: opt.FlushInterval,
		done:          make(chan struct{}),
	}
	go j.run()
	return j, nil
}

// Record queues ev and reports whether it was accepted.
func (j *Journal) Record(ev Event) bool {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		j.dropped.Add(1)
		return false
	}
	select {
	case j.queue <- ev:
		return true
	default:
		j.dropped.Add(1)
		return false
	}
}

// Hooks returns opt with lifecycle callbacks that record into the journal.
// Callbacks already set on opt still run, after the event is recorded.
func (j *Journal) Hooks(opt socket.Option) socket.Option {
	opt.OnConnect = j.hook(KindConnect, opt.OnConnect)
	opt.OnReconnect = j.hook(KindReconnect, opt.OnReconnect)
	opt.OnDisconnect = j.hook(KindDisconnect, opt.OnDisconnect)
	return opt
}

func (j *Journal) hook(kind Kind, next func(*socket.Client)) func(*socket.Client) {
	return func(c *socket.Client) {
		j.Record(Event{
			ClientID: c.ID(),
			URL:      c.URL(),
			Kind:     kind,
			Mode:     c.Mode(),
			Stats:    c.Stats(),
		})
		if next != nil {
			next(c)
		}
	}
}

// Dropped is the number of events lost to a full queue.
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}

// Failed is the number of events lost to store errors.
func (j *Journal) Failed() uint64 {
	return j.failed.Load()
}

// Close flushes queued events and closes the store.
func (j *Journal) Close(ctx context.Context) error {
	j.mu.Lock()
	if !j.closed {
		j.closed = true
		close(j.queue)
	}
	j.mu.Unlock()

	select {
	case <-j.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	j.storeOnce.Do(func() {
		j.storeErr = j.store.Close()
	})
	return j.storeErr
}

func (j *Journal) run() {
	defer close(j.done)

	ticker := time.NewTicker(j.flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, j.batchSize)
	for {
		select {
		case ev, ok := <-j.queue:
			if !ok {
				j.flush(batch)
				return
			}
			batch = append(batch, ev)
			if len(batch) >= j.batchSize {
				j.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				j.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (j *Journal) flush(batch []Event) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), j.flushInterval*5)
	defer cancel()
	if err := j.store.Append(ctx, batch); err != nil {
		j.failed.Add(uint64(len(batch)))
		logs.Errorf("journal: append %d events, err: %+v", len(batch), err)
	}
}
