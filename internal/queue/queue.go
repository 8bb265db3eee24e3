package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"janusprop/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// IngestQueue buffers incoming property records and assembles them into
// batches for the processor. A batch is emitted when it reaches maxBatch
// rows or when maxWait elapses with a partial batch pending.
type IngestQueue struct {
	items    chan *models.Property
	batches  chan []*models.Property
	done     chan struct{}
	maxBatch int
	maxWait  time.Duration
	closed   bool
	mu       sync.RWMutex
	wg       sync.WaitGroup
	logger   *logrus.Logger
}

func NewIngestQueue(bufferSize, maxBatch int, maxWait time.Duration, logger *logrus.Logger) *IngestQueue {
	if logger == nil {
		logger = logrus.New()
	}
	if maxBatch <= 0 {
		maxBatch = 1
	}
	return &IngestQueue{
		items:    make(chan *models.Property, bufferSize),
		batches:  make(chan []*models.Property, 1),
		done:     make(chan struct{}),
		maxBatch: maxBatch,
		maxWait:  maxWait,
		logger:   logger,
	}
}

// Push enqueues a single property without blocking.
func (q *IngestQueue) Push(p *models.Property) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	select {
	case q.items <- p:
		return nil
	default:
		return ErrQueueFull
	}
}

// Batches exposes the assembled batches for consumption.
func (q *IngestQueue) Batches() <-chan []*models.Property {
	return q.batches
}

// Start launches the batching loop.
func (q *IngestQueue) Start() {
	q.wg.Add(1)
	go q.assemble()
}

// Close stops intake, flushes the pending batch and closes the batch
// channel once drained.
func (q *IngestQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.done)
	q.wg.Wait()
	close(q.batches)
}

func (q *IngestQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

func (q *IngestQueue) Len() int {
	return len(q.items)
}

// drainGrace bounds how long a closed queue waits for the consumer per
// batch before dropping it. Close must never block forever, even when
// the consumer is already gone.
const drainGrace = 2 * time.Second

// emit delivers one batch. When the queue is closed and the consumer
// stops draining, the batch is dropped after a grace period instead of
// deadlocking shutdown; the drop is reported and returns false.
func (q *IngestQueue) emit(batch []*models.Property) bool {
	select {
	case q.batches <- batch:
		return true
	default:
	}

	select {
	case q.batches <- batch:
		return true
	case <-q.done:
	}

	select {
	case q.batches <- batch:
		return true
	case <-time.After(drainGrace):
		q.logger.WithField("batch_size", len(batch)).Error("Dropping batch: queue closed with no consumer")
		return false
	}
}

func (q *IngestQueue) assemble() {
	defer q.wg.Done()

	var pending []*models.Property
	timer := time.NewTimer(q.maxWait)
	defer timer.Stop()

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := pending
		pending = nil
		if q.emit(batch) {
			q.logger.WithField("batch_size", len(batch)).Debug("Emitted ingest batch")
		}
	}

	for {
		select {
		case <-q.done:
			// Drain whatever already made it into the buffer.
			for {
				select {
				case p := <-q.items:
					pending = append(pending, p)
					if len(pending) >= q.maxBatch {
						flush()
					}
				default:
					flush()
					return
				}
			}
		case p := <-q.items:
			pending = append(pending, p)
			if len(pending) >= q.maxBatch {
				flush()
				timer.Reset(q.maxWait)
			}
		case <-timer.C:
			flush()
			timer.Reset(q.maxWait)
		}
	}
}
