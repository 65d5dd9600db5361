// Package persist flushes in-memory state to the durable store in the
// background. Callers schedule a write and return immediately; a crash before
// the flush loses the last change.
package persist

import (
	"context"
	"sync"
	"time"

	walletstatedb "github.com/Maphikza/flow-wallet-state/internal/database"
	"github.com/rs/zerolog"
)

const writeTimeout = 10 * time.Second

type op struct {
	value  []byte
	remove bool
}

// Writer coalesces scheduled writes per key and applies them on a single
// goroutine.
type Writer struct {
	store  walletstatedb.Store
	logger zerolog.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	pending  map[string]op
	order    []string
	inFlight int
	closed   bool

	wake chan struct{}
	done chan struct{}
}

// NewWriter starts the flush goroutine.
func NewWriter(store walletstatedb.Store, logger zerolog.Logger) *Writer {
	w := &Writer{
		store:   store,
		logger:  logger.With().Str("component", "persist").Logger(),
		pending: make(map[string]op),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// Schedule queues value to be written under key.
func (w *Writer) Schedule(key string, value []byte) {
	w.enqueue(key, op{value: value})
}

// ScheduleRemove queues removal of key.
func (w *Writer) ScheduleRemove(key string) {
	w.enqueue(key, op{remove: true})
}

func (w *Writer) enqueue(key string, o op) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Warn().Str("key", key).Msg("write scheduled after close, dropped")
		return
	}
	if _, ok := w.pending[key]; !ok {
		w.order = append(w.order, key)
	}
	w.pending[key] = o
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		w.mu.Lock()
		for len(w.order) == 0 && !w.closed {
			w.mu.Unlock()
			<-w.wake
			w.mu.Lock()
		}
		if len(w.order) == 0 && w.closed {
			w.mu.Unlock()
			return
		}

		batch, order := w.pending, w.order
		w.pending, w.order = make(map[string]op), nil
		w.inFlight = len(order)
		w.mu.Unlock()

		for _, key := range order {
			w.apply(key, batch[key])
		}

		w.mu.Lock()
		w.inFlight = 0
		w.cond.Broadcast()
		w.mu.Unlock()
	}
}

func (w *Writer) apply(key string, o op) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	if o.remove {
		err = w.store.Remove(ctx, key)
	} else {
		err = w.store.Set(ctx, key, o.value)
	}
	if err != nil {
		w.logger.Error().Err(err).Str("key", key).Bool("remove", o.remove).Msg("failed to persist")
	}
}

// Flush blocks until every write scheduled before the call has been applied
// or ctx is done.
func (w *Writer) Flush(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		w.mu.Lock()
		w.cond.Broadcast()
		w.mu.Unlock()
	})
	defer stop()

	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.order) > 0 || w.inFlight > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.cond.Wait()
	}
	return nil
}

// Close flushes outstanding writes and stops the goroutine. Later schedules
// are dropped.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	<-w.done

	w.mu.Lock()
	w.cond.Broadcast()
	w.mu.Unlock()
	return nil
}
