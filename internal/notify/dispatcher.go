package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pantechsoftware2/Scholarship-Finder/internal/metrics"
)

const (
	defaultWorkers     = 4
	defaultQueueSize   = 100
	defaultSendTimeout = 30 * time.Second
)

// Options tune the dispatcher.
type Options struct {
	From        string
	BookingURL  string
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher sends notification jobs on a fixed pool of workers. Jobs are
// attempted once; failures are logged and counted but never reported back.
type Dispatcher struct {
	sender Sender
	opts   Options
	logger *zap.Logger
	now    func() time.Time

	jobs chan Job
	wg   sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

func NewDispatcher(sender Sender, opts Options, logger *zap.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		sender: sender,
		opts:   opts,
		logger: logger,
		now:    time.Now,
		jobs:   make(chan Job, opts.QueueSize),
	}
}

// Start launches the workers. Sends derive their context from ctx.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.work(ctx, i)
	}

	d.logger.Info("notification dispatcher started",
		zap.Int("workers", d.opts.Workers),
		zap.Int("queue_size", d.opts.QueueSize),
	)
}

// Schedule enqueues job without blocking. It reports false when the job was
// dropped because the queue is full or the dispatcher is stopped.
func (d *Dispatcher) Schedule(job Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(job, "dispatcher stopped")
		return false
	}

	select {
	case d.jobs <- job:
		metrics.NotificationsQueued.Inc()
		d.logger.Debug("notification scheduled", zap.String("job_id", job.ID), zap.String("kind", string(job.Kind)))
		return true
	default:
		d.drop(job, "queue full")
		return false
	}
}

// Stop closes intake and waits for queued and in-flight jobs until ctx is done.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for notification workers: %w", ctx.Err())
	}
}

func (d *Dispatcher) work(ctx context.Context, id int) {
	defer d.wg.Done()

	for job := range d.jobs {
		metrics.NotificationsQueued.Dec()
		d.process(ctx, id, job)
	}
}

func (d *Dispatcher) process(ctx context.Context, worker int, job Job) {
	log := d.logger.With(
		zap.String("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("email", job.Email),
		zap.Int("worker", worker),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("notification panicked", zap.Any("panic", r))
			metrics.NotificationsTotal.WithLabelValues(string(job.Kind), "failed").Inc()
		}
	}()

	if err := d.send(ctx, job); err != nil {
		log.Error("notification failed", zap.Error(err))
		metrics.NotificationsTotal.WithLabelValues(string(job.Kind), "failed").Inc()
		return
	}

	log.Info("notification sent")
	metrics.NotificationsTotal.WithLabelValues(string(job.Kind), "sent").Inc()
}

func (d *Dispatcher) send(ctx context.Context, job Job) error {
	if d.sender == nil {
		return fmt.Errorf("no sender configured")
	}

	msg, err := Compose(job, d.opts.From, d.opts.BookingURL, d.now())
	if err != nil {
		return err
	}

	raw, err := msg.Bytes()
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()

	return d.sender.Send(sendCtx, d.opts.From, []string{job.Email}, raw)
}

func (d *Dispatcher) drop(job Job, reason string) {
	d.logger.Warn("notification dropped",
		zap.String("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("email", job.Email),
		zap.String("reason", reason),
	)
	metrics.NotificationsTotal.WithLabelValues(string(job.Kind), "dropped").Inc()
}
