package prefetch

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// ThumbnailJob asks for one dish thumbnail to be resolved into the cache
// ahead of the list item scrolling into view.
type ThumbnailJob struct {
	Name     string
	Category string
}

// Handler resolves a single job. Errors are counted, not propagated; a failed
// warmup just means the list item fetches on demand later.
type Handler func(ctx context.Context, job ThumbnailJob) error

// PoolStats contains live metrics for the prefetch pool.
type PoolStats struct {
	NumWorkers      int   `json:"num_workers"`
	QueueSize       int   `json:"queue_size"`
	ActiveWorkers   int   `json:"active_workers"`
	TotalDispatched int64 `json:"total_dispatched"`
	TotalProcessed  int64 `json:"total_processed"`
	TotalDropped    int64 `json:"total_dropped"`
	TotalErrors     int64 `json:"total_errors"`
}

// Pool warms the thumbnail cache with a fixed set of workers. Jobs for the
// same dish shard to the same worker so duplicate warmups queue behind each
// other instead of racing.
type Pool struct {
	numWorkers int
	queueSize  int
	handler    Handler
	workers    []*worker
	wg         sync.WaitGroup
	stopOnce   sync.Once
	stopped    int32
	stopCh     chan struct{}

	totalDispatched int64
	totalProcessed  int64
	totalDropped    int64
	totalErrors     int64
}

type worker struct {
	id           int
	jobQueue     chan ThumbnailJob
	ctx          context.Context
	cancel       context.CancelFunc
	isProcessing int32
	pool         *Pool
}

func NewPool(numWorkers, queueSize int, handler Handler) *Pool {
	if numWorkers <= 0 {
		numWorkers = 8
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Pool{
		numWorkers: numWorkers,
		queueSize:  queueSize,
		handler:    handler,
		workers:    make([]*worker, numWorkers),
		stopCh:     make(chan struct{}),
	}
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		w := &worker{
			id:       i,
			jobQueue: make(chan ThumbnailJob, p.queueSize),
			ctx:      workerCtx,
			cancel:   cancel,
			pool:     p,
		}
		p.workers[i] = w

		p.wg.Add(1)
		go w.run(&p.wg)
	}

	logrus.Infof("[PREFETCH] Started with %d workers, queue size: %d", p.numWorkers, p.queueSize)
}

// TryDispatch enqueues a job without blocking and reports whether it fit.
// Used to apply backpressure on the warmup endpoint.
func (p *Pool) TryDispatch(job ThumbnailJob) bool {
	if atomic.LoadInt32(&p.stopped) == 1 {
		atomic.AddInt64(&p.totalDropped, 1)
		return false
	}

	shard := p.shardFor(job)
	atomic.AddInt64(&p.totalDispatched, 1)

	sent := func() (ok bool) {
		defer func() {
			if r := recover(); r != nil {
				ok = false
			}
		}()
		select {
		case p.workers[shard].jobQueue <- job:
			return true
		default:
			return false
		}
	}()

	if sent {
		return true
	}
	atomic.AddInt64(&p.totalDropped, 1)
	logrus.Warnf("[PREFETCH] Worker %d queue full (or stopped), dropping warmup for %q", shard, job.Name)
	return false
}

// Stop shuts the pool down gracefully, draining queued jobs.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.stopped, 1)
		close(p.stopCh)
		logrus.Info("[PREFETCH] Stopping workers...")

		for _, w := range p.workers {
			w.cancel()
			close(w.jobQueue)
		}
		p.wg.Wait()

		logrus.Info("[PREFETCH] All workers stopped")
	})
}

func (p *Pool) shardFor(job ThumbnailJob) int {
	h := fnv.New32a()
	h.Write([]byte(job.Name + "|" + job.Category))
	return int(h.Sum32() % uint32(p.numWorkers))
}

// GetStats returns a snapshot of the pool metrics.
func (p *Pool) GetStats() PoolStats {
	activeWorkers := 0
	for _, w := range p.workers {
		if w != nil && atomic.LoadInt32(&w.isProcessing) == 1 {
			activeWorkers++
		}
	}
	return PoolStats{
		NumWorkers:      p.numWorkers,
		QueueSize:       p.queueSize,
		ActiveWorkers:   activeWorkers,
		TotalDispatched: atomic.LoadInt64(&p.totalDispatched),
		TotalProcessed:  atomic.LoadInt64(&p.totalProcessed),
		TotalDropped:    atomic.LoadInt64(&p.totalDropped),
		TotalErrors:     atomic.LoadInt64(&p.totalErrors),
	}
}

func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	logrus.Debugf("[PREFETCH] Worker %d started", w.id)

	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				logrus.Debugf("[PREFETCH] Worker %d shutting down", w.id)
				return
			}
			w.process(job)

		case <-w.ctx.Done():
			logrus.Debugf("[PREFETCH] Worker %d context cancelled, draining queue...", w.id)
			w.drainQueue()
			return
		}
	}
}

func (w *worker) process(job ThumbnailJob) {
	atomic.StoreInt32(&w.isProcessing, 1)
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&w.pool.totalErrors, 1)
			logrus.Errorf("[PREFETCH] Worker %d panic for %q: %v", w.id, job.Name, r)
		}
		atomic.StoreInt32(&w.isProcessing, 0)
		atomic.AddInt64(&w.pool.totalProcessed, 1)
	}()

	if err := w.pool.handler(w.ctx, job); err != nil {
		atomic.AddInt64(&w.pool.totalErrors, 1)
		logrus.WithError(err).Debugf("[PREFETCH] Worker %d warmup failed for %q", w.id, job.Name)
	}
}

func (w *worker) drainQueue() {
	for {
		select {
		case job, ok := <-w.jobQueue:
			if !ok {
				return
			}
			w.process(job)
		default:
			return
		}
	}
}
