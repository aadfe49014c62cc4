package relay

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Handler processes one dequeued request. *Orchestrator implements it.
type Handler interface {
	Handle(ctx context.Context, req *QueuedRequest)
}

// Outcome reports what Submit did with an event.
type Outcome int

const (
	// Rejected means the author is still in cooldown.
	Rejected Outcome = iota
	// Queued means the request waits for the drain loop.
	Queued
)

// PipelineConfig tunes the pipeline.
type PipelineConfig struct {
	Cooldown          time.Duration
	MaxThroughput     int // requests per second
	QueueAckThreshold int
}

// Pipeline owns the admission state and the queue, and drains the queue into a
// Handler at a fixed rate.
type Pipeline struct {
	admitter  *Admitter
	assembler *Assembler
	queue     *Queue
	handler   Handler
	sink      Sink
	messages  Messages
	clock     clockwork.Clock
	period    time.Duration
	ackAt     int
	log       *slog.Logger
}

// NewPipeline creates a Pipeline. The drain loop does not start until Run.
func NewPipeline(cfg PipelineConfig, assembler *Assembler, handler Handler, sink Sink, messages Messages, clock clockwork.Clock, logger *slog.Logger) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{
		admitter:  NewAdmitter(cfg.Cooldown),
		assembler: assembler,
		queue:     NewQueue(),
		handler:   handler,
		sink:      sink,
		messages:  messages,
		clock:     clock,
		period:    time.Second / time.Duration(max(cfg.MaxThroughput, 1)),
		ackAt:     cfg.QueueAckThreshold,
		log:       logger.With("component", "pipeline"),
	}
}

// Submit admits ev, assembles its context, and enqueues it. It runs on the
// caller's goroutine and never blocks on the drain loop.
func (p *Pipeline) Submit(ctx context.Context, ev Event) Outcome {
	target := Target{GuildID: ev.GuildID, ChannelID: ev.ChannelID, ReplyTo: ev.MessageID}

	admission := p.admitter.TryAdmit(ev.AuthorID, p.clock.Now())
	if !admission.Admitted {
		p.log.DebugContext(ctx, "Request rejected by cooldown", "user_id", ev.AuthorID, "retry_after", admission.RetryAfter)
		p.notify(ctx, target, p.messages.Cooldown, admission.RetryAfter)
		return Rejected
	}

	req := p.assembler.Assemble(ctx, ev)
	depth := p.queue.Enqueue(req)
	p.log.DebugContext(ctx, "Request queued", "request_id", req.ID, "depth", depth)

	if depth > p.ackAt {
		p.notify(ctx, target, p.messages.Queued, depth-1)
	}
	return Queued
}

// Len returns the number of queued requests.
func (p *Pipeline) Len() int {
	return p.queue.Len()
}

// Run drains the queue, one request per tick, until ctx is done. Requests still
// queued at shutdown are dropped.
func (p *Pipeline) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.period)
	defer ticker.Stop()

	p.log.InfoContext(ctx, "Pipeline drain started", "period", p.period)
	for {
		select {
		case <-ctx.Done():
			if dropped := p.queue.Drain(); dropped > 0 {
				p.log.WarnContext(ctx, "Dropped queued requests on shutdown", "count", dropped)
			}
			p.log.InfoContext(ctx, "Pipeline drain stopped")
			return nil
		case <-ticker.Chan():
			req, ok := p.queue.Dequeue()
			if !ok {
				continue
			}
			p.log.DebugContext(ctx, "Processing request", "request_id", req.ID, "waited", p.clock.Since(req.EnqueuedAt))
			p.handler.Handle(context.WithoutCancel(ctx), req)
			p.admitter.Forget(p.clock.Now())
		}
	}
}

// notify sends a best-effort notice. Failures are logged and ignored.
func (p *Pipeline) notify(ctx context.Context, target Target, format string, n int) {
	if format == "" {
		return
	}
	if err := p.sink.SendText(ctx, target, fmt.Sprintf(format, n)); err != nil {
		p.log.DebugContext(ctx, "Notice delivery failed", "error", err)
	}
}
