// Package recorder provides the async writer between the request path and
// usage storage. Requests never block on storage writes: records are
// enqueued to a buffered channel and drained by a single background
// worker, so the write order matches the enqueue order.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"agentgw/costgate/pkg/usage"
)

// Config contains configuration for the usage recorder.
type Config struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds a single storage write and the time Record will
	// wait for buffer space before dropping.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// MaxRetries is how many times a failed write is retried before the
	// record is dropped.
	// Default: 3
	MaxRetries int

	// RetryBackoff is the delay before the first retry; each further retry
	// doubles it.
	// Default: 100ms
	RetryBackoff time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
	}
}

// item is one unit of work for the worker: a record to write, or a flush
// marker whose channel is closed once every earlier record is durable.
type item struct {
	record *usage.Record
	flush  chan struct{}
}

// Recorder writes usage records to storage asynchronously.
type Recorder struct {
	storage usage.Storage
	config  *Config
	ch      chan item
	done    chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger

	// mu orders enqueues against shutdown: Record and Flush hold the read
	// lock across the send, Close flips closed under the write lock before
	// signalling the worker. A record accepted with a nil error is
	// therefore always drained.
	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once
	dropped   atomic.Int64
}

// New creates a recorder and starts its background worker.
func New(storage usage.Storage, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = 100 * time.Millisecond
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		ch:      make(chan item, config.AsyncBuffer),
		done:    make(chan struct{}),
		logger:  slog.Default().With("component", "usage.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("Usage recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout)

	return r
}

// Record enqueues one usage record for writing. It assigns an ID and
// timestamp when the caller left them empty and returns immediately.
//
// When the buffer stays full past the write timeout, or the recorder has
// been closed, the record is dropped and an error is returned; the request
// that produced the record is never failed on account of recording.
func (r *Recorder) Record(record *usage.Record) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now().UTC()
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.dropped.Add(1)
		r.logger.Warn("Recorder closed, dropping record",
			"record_id", record.ID)
		return usage.NewRecorderError(record.ID, context.Canceled)
	}

	select {
	case r.ch <- item{record: record}:
		return nil
	case <-time.After(r.config.WriteTimeout):
		r.dropped.Add(1)
		r.logger.Error("Usage record channel full, dropping record",
			"record_id", record.ID,
			"channel_capacity", r.config.AsyncBuffer)
		return usage.NewRecorderError(record.ID, context.DeadlineExceeded)
	}
}

// Flush blocks until every record enqueued before the call is durable, or
// the context is done.
func (r *Recorder) Flush(ctx context.Context) error {
	marker := make(chan struct{})

	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return nil // Close drains the queue before returning
	}
	select {
	case r.ch <- item{flush: marker}:
		r.mu.RUnlock()
	case <-ctx.Done():
		r.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns the number of records dropped since startup.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// QueueDepth returns the number of records waiting in the buffer.
func (r *Recorder) QueueDepth() int {
	return len(r.ch)
}

// Close drains the channel and waits for all pending writes to complete.
func (r *Recorder) Close() error {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()

		r.logger.Info("Shutting down usage recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("Usage recorder shut down", "dropped_total", r.dropped.Load())
	})
	return nil
}

// worker drains the channel and writes records to storage in order.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case it := <-r.ch:
			r.process(it)

		case <-r.done:
			// Drain remaining items before exit.
			for {
				select {
				case it := <-r.ch:
					r.process(it)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) process(it item) {
	if it.flush != nil {
		close(it.flush)
		return
	}
	r.writeRecord(it.record)
}

// writeRecord writes one record, retrying transient failures with
// exponential backoff.
func (r *Recorder) writeRecord(record *usage.Record) {
	backoff := r.config.RetryBackoff

	for attempt := 0; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
		err := r.storage.Store(ctx, record)
		cancel()

		if err == nil {
			if attempt > 0 {
				r.logger.Info("Usage record stored after retry",
					"record_id", record.ID,
					"attempts", attempt+1)
			}
			return
		}

		if attempt >= r.config.MaxRetries {
			r.dropped.Add(1)
			r.logger.Error("Failed to store usage record, dropping",
				"record_id", record.ID,
				"attempts", attempt+1,
				"error", err)
			return
		}

		r.logger.Warn("Usage record write failed, retrying",
			"record_id", record.ID,
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)
		time.Sleep(backoff)
		backoff *= 2
	}
}
