package queue

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const channelBuffer = 256

// ErrPoolClosed is returned once the pool's context has been cancelled.
var ErrPoolClosed = errors.New("hash pool closed")

var _ ports.PasswordHasher = (*HashPool)(nil)

type jobKind int

const (
	jobHash jobKind = iota
	jobVerify
)

type job struct {
	kind      jobKind
	plaintext string
	hash      string
	reply     chan result
}

type result struct {
	hash string
	ok   bool
	err  error
}

// HashPool runs a CPU-bound PasswordHasher on a fixed set of workers so that
// bursts of registrations and logins cannot occupy every request goroutine.
// It implements ports.PasswordHasher itself and is meant to wrap the real
// hasher.
type HashPool struct {
	jobs   chan job
	inner  ports.PasswordHasher
	size   int
	done    chan struct{}
	drained chan struct{}
	log     zerolog.Logger
	queued func(delta float64)
}

// NewHashPool creates a pool of numWorkers workers around inner.
// If numWorkers <= 0, GOMAXPROCS is used.
func NewHashPool(numWorkers int, inner ports.PasswordHasher, log zerolog.Logger) *HashPool {
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	return &HashPool{
		jobs:    make(chan job, channelBuffer),
		inner:   inner,
		size:    numWorkers,
		done:    make(chan struct{}),
		drained: make(chan struct{}),
		log:     log,
		queued:  metrics.HashQueueDepth.Add,
	}
}

// Start launches the workers. They stop, and the pool rejects new work, when
// ctx is cancelled.
func (p *HashPool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		go p.runWorker(ctx, i)
	}
	go func() {
		<-ctx.Done()
		close(p.done)
		n := p.drain()
		close(p.drained)
		p.log.Debug().Int("workers", p.size).Int("dropped", n).Msg("hash pool stopped")
	}()
}

// drain empties the job buffer after close, answering each job with
// ErrPoolClosed so the queue depth gauge returns to zero.
func (p *HashPool) drain() int {
	n := 0
	for {
		select {
		case j := <-p.jobs:
			p.queued(-1)
			j.reply <- result{err: ErrPoolClosed}
			n++
		default:
			return n
		}
	}
}

// Hash blocks until a worker has hashed plaintext.
func (p *HashPool) Hash(plaintext string) (string, error) {
	r := p.submit(job{kind: jobHash, plaintext: plaintext})
	return r.hash, r.err
}

// Verify blocks until a worker has compared plaintext with hash. A closed
// pool reports false.
func (p *HashPool) Verify(plaintext, hash string) bool {
	r := p.submit(job{kind: jobVerify, plaintext: plaintext, hash: hash})
	return r.err == nil && r.ok
}

func (p *HashPool) submit(j job) result {
	j.reply = make(chan result, 1)
	select {
	case <-p.done:
		return result{err: ErrPoolClosed}
	default:
	}
	select {
	case <-p.done:
		return result{err: ErrPoolClosed}
	case p.jobs <- j:
		p.queued(1)
	}
	select {
	case <-p.drained:
		// Enqueued after the shutdown drain; nobody else will pick it up.
		p.drain()
	default:
	}
	select {
	case <-p.done:
		return result{err: ErrPoolClosed}
	case r := <-j.reply:
		return r
	}
}

func (p *HashPool) runWorker(ctx context.Context, id int) {
	worker := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-p.jobs:
			p.queued(-1)
			j.reply <- p.process(worker, j)
		}
	}
}

func (p *HashPool) process(worker string, j job) result {
	start := time.Now()
	var r result
	switch j.kind {
	case jobHash:
		r.hash, r.err = p.inner.Hash(j.plaintext)
		if r.err != nil {
			p.log.Warn().Err(r.err).Str("worker_id", worker).Msg("password hashing failed")
		}
	case jobVerify:
		r.ok = p.inner.Verify(j.plaintext, j.hash)
	}
	metrics.PasswordHashDuration.WithLabelValues(j.kind.String()).Observe(time.Since(start).Seconds())
	return r
}

func (k jobKind) String() string {
	if k == jobVerify {
		return "verify"
	}
	return "hash"
}
