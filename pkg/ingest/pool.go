package ingest

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 64
)

// Job is a document waiting to be ingested.
type Job struct {
	// Path is the file to read.
	Path string

	// Source is the name the chunks are stored under.
	Source string
}

// PoolConfig is the configuration options for the ingestion pool.
type PoolConfig struct {
	Ingester *Ingester

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 64).
	QueueSize uint

	// OnDone is called after every job. Optional.
	OnDone func(Job, *Result, error)

	// Logger is the provided zap logger
	Logger *zap.Logger
}

// Pool ingests documents asynchronously via a worker pool.
type Pool struct {
	config *PoolConfig
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *PoolConfig) (*Pool, error) {
	if c.Ingester == nil {
		return nil, fmt.Errorf("ingester is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed", zap.String("source", job.Source))
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("ingestion job queued",
			zap.String("path", job.Path),
			zap.String("source", job.Source),
		)
		return true
	default:
		p.logger.Error("ingestion job not queued, queue full, job dropped",
			zap.String("path", job.Path),
			zap.String("source", job.Source),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("ingestion worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("ingestion worker stopped", zap.Uint("worker_id", id))
}

func (p *Pool) processJob(job Job) {
	res, err := p.config.Ingester.Ingest(context.Background(), job.Path, job.Source)
	if err != nil {
		p.logger.Error("async ingestion failed",
			zap.String("path", job.Path),
			zap.String("source", job.Source),
			zap.Error(err),
		)
	}

	if p.config.OnDone != nil {
		p.config.OnDone(job, res, err)
	}
}
