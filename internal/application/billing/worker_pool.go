package billing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrPoolStopped se devuelve al encolar en un pool detenido.
var ErrPoolStopped = errors.New("worker pool detenido")

// ErrQueueFull se devuelve cuando la cola de envíos está llena.
var ErrQueueFull = errors.New("cola de envíos llena")

// SubmissionJob es un comprobante a procesar por un worker.
type SubmissionJob struct {
	DocumentID string
	EnqueuedAt time.Time
}

// JobHandler procesa un trabajo con un contexto que ya trae el timeout por trabajo.
type JobHandler func(ctx context.Context, job SubmissionJob)

// WorkerPool procesa envíos de forma concurrente con una cola acotada.
type WorkerPool struct {
	workerCount int
	jobTimeout  time.Duration
	jobChan     chan SubmissionJob
	handler     JobHandler
	log         zerolog.Logger

	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
	started bool
	stopped bool
}

// NewWorkerPool crea el pool. queueSize <= 0 usa workerCount*2.
func NewWorkerPool(workerCount, queueSize int, jobTimeout time.Duration, handler JobHandler, log zerolog.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = workerCount * 2
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		workerCount: workerCount,
		jobTimeout:  jobTimeout,
		jobChan:     make(chan SubmissionJob, queueSize),
		handler:     handler,
		log:         log.With().Str("component", "worker_pool").Logger(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start lanza los workers. Llamarlo más de una vez no tiene efecto.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop deja de aceptar trabajos, espera a que se vacíe la cola y cancela el contexto.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobChan)
	p.mu.Unlock()

	p.wg.Wait()
	p.cancel()
}

// Submit encola un trabajo sin bloquear.
func (p *WorkerPool) Submit(job SubmissionJob) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	select {
	case p.jobChan <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending devuelve los trabajos en cola.
func (p *WorkerPool) Pending() int {
	return len(p.jobChan)
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobChan {
		p.run(id, job)
	}
}

func (p *WorkerPool) run(id int, job SubmissionJob) {
	ctx := p.ctx
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(p.ctx, p.jobTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("worker", id).Str("document_id", job.DocumentID).
				Interface("panic", r).Msg("worker recuperado de un panic")
		}
	}()
	p.handler(ctx, job)
}
