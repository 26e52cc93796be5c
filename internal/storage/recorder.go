package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultMaxBatchSize = 100
	recorderQueueSize   = 256
	flushInterval       = time.Second
)

// WithMaxBatchSize sets the maximum number of samples stored within a single
// database transaction.
func WithMaxBatchSize(size int) func(*Recorder) {
	return func(r *Recorder) {
		r.maxBatchSize = size
	}
}

// WithRecorderLogger sets the logger for the recorder.
func WithRecorderLogger(logger *slog.Logger) func(*Recorder) {
	return func(r *Recorder) {
		r.logger = logger.With(slog.String("component", "recorder"))
	}
}

// Recorder buffers recorded samples off the datagram-handling path and
// writes them to the store in batches. Record never blocks: when the buffer
// is full the samples are dropped and counted.
type Recorder struct {
	store     *Store
	sessionID int64
	logger    *slog.Logger

	maxBatchSize int
	queue        chan []Sample
	done         chan struct{}
	wg           sync.WaitGroup

	dropped atomic.Uint64
}

// NewRecorder creates a recorder writing to an existing session and starts
// its background writer.
func NewRecorder(store *Store, sessionID int64, options ...func(*Recorder)) *Recorder {
	r := Recorder{
		store:        store,
		sessionID:    sessionID,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxBatchSize: defaultMaxBatchSize,
		queue:        make(chan []Sample, recorderQueueSize),
		done:         make(chan struct{}),
	}

	for _, option := range options {
		option(&r)
	}

	r.wg.Add(1)
	go r.run()

	return &r
}

// Record queues one datagram's worth of samples for storage. The timestamp
// applies to every sample of the frame.
func (r *Recorder) Record(timestamp time.Time, samples []Sample) {
	for i := range samples {
		samples[i].SessionID = r.sessionID
		samples[i].Timestamp = timestamp
	}

	select {
	case r.queue <- samples:
	default:
		r.dropped.Add(uint64(len(samples)))
		r.logger.Warn("recorder buffer full, dropping samples",
			slog.Uint64("dropped", r.dropped.Load()))
	}
}

// Dropped returns the number of samples dropped due to a full buffer.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Close stops the background writer, flushing everything still queued.
func (r *Recorder) Close() {
	close(r.done)
	r.wg.Wait()
}

func (r *Recorder) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	var batch []Sample
	for {
		select {
		case samples := <-r.queue:
			batch = append(batch, samples...)
			if len(batch) >= r.maxBatchSize {
				batch = r.flush(batch)
			}

		case <-ticker.C:
			batch = r.flush(batch)

		case <-r.done:
			for {
				select {
				case samples := <-r.queue:
					batch = append(batch, samples...)
				default:
					r.flush(batch)
					return
				}
			}
		}
	}
}

// flush writes the pending batch and returns the (emptied) slice for reuse.
// Failed batches are logged and discarded; recording is best-effort.
func (r *Recorder) flush(batch []Sample) []Sample {
	if len(batch) == 0 {
		return batch
	}

	if err := r.store.BatchInsertSamples(context.Background(), batch); err != nil {
		r.logger.Error(fmt.Sprintf("storing samples: %s", err))
	}

	return batch[:0]
}
