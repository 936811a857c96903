package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/pkg/fn"
	"github.com/WessleyAI/rizz-engine/pkg/natsutil"
)

const (
	// RequestSubject is the NATS subject for incoming URL jobs.
	RequestSubject = "rizz.ingest.request"
	// DoneSubject receives a Done event for every finished job.
	DoneSubject = "rizz.ingest.done"
	// DLQSubject is the dead letter queue subject for failed jobs.
	DLQSubject = "rizz.ingest.dlq"
	// MaxRetries before sending to DLQ.
	MaxRetries = 3
	// DefaultQueue is the queue group workers join.
	DefaultQueue = "rizz-ingest"
)

// Bus is what the worker publishes to.
type Bus interface {
	Publish(ctx context.Context, subject string, v any) error
	Retry(ctx context.Context, subject string, data []byte, retries int) error
}

// NATSBus publishes through a NATS connection.
type NATSBus struct{ Conn *nats.Conn }

func (b NATSBus) Publish(ctx context.Context, subject string, v any) error {
	return natsutil.Publish(ctx, b.Conn, subject, v)
}

func (b NATSBus) Retry(ctx context.Context, subject string, data []byte, retries int) error {
	return natsutil.PublishRetry(ctx, b.Conn, subject, data, retries)
}

// DeadLetter is published to the DLQ on repeated or permanent failure.
type DeadLetter struct {
	Job     Job    `json:"job"`
	Error   string `json:"error"`
	Retries int    `json:"retries"`
}

// WorkerOpts configures a Worker.
type WorkerOpts struct {
	MaxRetries int
	Timeout    time.Duration // per job; zero means none
	Marker     Marker        // optional dedup
	Logger     *slog.Logger
	Metrics    *Metrics
}

// Worker handles one job at a time from the request subject.
type Worker struct {
	pipeline fn.Stage[Job, Done]
	bus      Bus
	opts     WorkerOpts
	log      *slog.Logger
}

// NewWorker creates a Worker.
func NewWorker(pipeline fn.Stage[Job, Done], bus Bus, opts WorkerOpts) *Worker {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = MaxRetries
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Worker{pipeline: pipeline, bus: bus, opts: opts, log: log}
}

// Handle runs one delivery of job. retries is how many times the job was
// already redelivered. The returned Done describes this attempt.
func (w *Worker) Handle(ctx context.Context, job Job, retries int) Done {
	done := Done{URL: job.URL, Retries: retries}

	if err := domain.ValidateVideoURL(job.URL); err != nil {
		done.Error = err.Error()
		w.deadLetter(ctx, job, err.Error(), retries)
		w.opts.Metrics.job("invalid")
		return done
	}

	if w.opts.Marker != nil {
		seen, err := w.opts.Marker.Seen(ctx, job.URL)
		if err != nil {
			w.log.Warn("ingest: dedup check failed", "url", job.URL, "error", err)
		} else if seen {
			w.log.Info("ingest: skipping duplicate", "url", job.URL)
			w.opts.Metrics.job("skipped")
			return done
		}
	}

	runCtx := ctx
	if w.opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.opts.Timeout)
		defer cancel()
	}

	end := w.opts.Metrics.begin()
	result := w.pipeline(runCtx, job)
	end()

	if result.IsErr() {
		pipeErr := result.Error()
		retries++
		done.Error = pipeErr.Error()
		done.Retries = retries
		w.log.Error("ingest: pipeline failed",
			"error", pipeErr,
			"url", job.URL,
			"retry", retries,
			"fatal", result.IsFatal(),
		)

		if result.IsFatal() || retries >= w.opts.MaxRetries {
			w.deadLetter(ctx, job, pipeErr.Error(), retries)
			w.publishDone(ctx, done)
			w.opts.Metrics.job("dead")
			return done
		}

		data, _ := json.Marshal(job)
		if err := w.bus.Retry(ctx, RequestSubject, data, retries); err != nil {
			w.log.Error("ingest: retry publish failed", "error", err)
		}
		w.opts.Metrics.job("retried")
		return done
	}

	done, _ = result.Unwrap()
	done.Retries = retries
	if w.opts.Marker != nil {
		if err := w.opts.Marker.Mark(ctx, job.URL); err != nil {
			w.log.Warn("ingest: dedup mark failed", "url", job.URL, "error", err)
		}
	}
	w.log.Info("ingest: success",
		"url", job.URL,
		"chunks", done.Chunks,
		"processed", done.Index.Processed,
		"errors", done.Index.Errors,
	)
	w.publishDone(ctx, done)
	w.opts.Metrics.job("done")
	return done
}

func (w *Worker) deadLetter(ctx context.Context, job Job, reason string, retries int) {
	if err := w.bus.Publish(ctx, DLQSubject, DeadLetter{Job: job, Error: reason, Retries: retries}); err != nil {
		w.log.Error("ingest: DLQ publish failed", "error", err)
	}
}

func (w *Worker) publishDone(ctx context.Context, done Done) {
	if err := w.bus.Publish(ctx, DoneSubject, done); err != nil {
		w.log.Error("ingest: done publish failed", "error", err)
	}
}

// StartConsumer subscribes w to RequestSubject in the given queue group.
// Requests carrying a reply subject are answered with the attempt's Done.
func StartConsumer(nc *nats.Conn, queue string, w *Worker) (*nats.Subscription, error) {
	return natsutil.Subscribe(nc, RequestSubject, queue, w.log, func(ctx context.Context, d natsutil.Delivery[Job]) {
		done := w.Handle(ctx, d.Value, d.Retries)
		if err := natsutil.Respond(d.Msg, done); err != nil {
			w.log.Warn("ingest: reply failed", "error", err)
		}
	})
}
