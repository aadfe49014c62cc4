package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/jonboulle/clockwork"
)

// ErrNoImage is logged when the image backend returns no URL.
var ErrNoImage = errors.New("image backend returned no result")

// OrchestratorDeps are the collaborators of an Orchestrator.
type OrchestratorDeps struct {
	Completer Completer
	Images    ImageGenerator
	Memory    MemoryWriter
	Quota     QuotaLedger
	Sink      Sink
	Filter    *ContentFilter
	Messages  Messages
	Clock     clockwork.Clock
	Logger    *slog.Logger
}

// Orchestrator answers one dequeued request: it runs the structured completion
// and dispatches the decision to the reply or the image branch.
type Orchestrator struct {
	deps OrchestratorDeps
	log  *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Filter == nil {
		deps.Filter = NewContentFilter(nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{deps: deps, log: logger.With("component", "orchestrator")}
}

// Handle processes req to completion. Failures are reported to the chat and logged.
func (o *Orchestrator) Handle(ctx context.Context, req *QueuedRequest) {
	log := o.log.With("request_id", req.ID, "guild_id", req.GuildID, "user_id", req.RequestorID)
	target := req.Target()

	if err := o.deps.Sink.SendTyping(ctx, target); err != nil {
		log.DebugContext(ctx, "Typing indicator failed", "error", err)
	}

	systemPrompt := BuildSystemPrompt(req, o.deps.Clock.Now())
	raw, err := o.deps.Completer.Complete(ctx, systemPrompt, req.TriggerText)
	if err != nil {
		log.ErrorContext(ctx, "Completion failed", "error", err)
		o.send(ctx, log, target, o.deps.Messages.GeneralError)
		return
	}

	switch d := ParseDecision(raw).(type) {
	case ParseError:
		log.ErrorContext(ctx, "Structured response rejected", "error", d.Cause, "raw", d.Raw)
		o.send(ctx, log, target, o.deps.Messages.GeneralError)
	case Parsed:
		log.DebugContext(ctx, "Structured response parsed", "generate_image", d.GenerateImage, "has_memory", d.Memory != "")
		if d.GenerateImage {
			o.generateImage(ctx, log, req)
			return
		}
		o.reply(ctx, log, req, d)
	}
}

func (o *Orchestrator) reply(ctx context.Context, log *slog.Logger, req *QueuedRequest, d Parsed) {
	if memory := strings.TrimSpace(d.Memory); memory != "" {
		if err := o.deps.Memory.Append(ctx, req.RequestorID, memory); err != nil {
			log.ErrorContext(ctx, "Failed to save memory", "error", err)
		}
	}

	text := d.Reply
	switch {
	case o.deps.Filter.Blocked(text):
		log.WarnContext(ctx, "Reply blocked by content filter", "reply", text)
		text = o.deps.Messages.Refusal
	case strings.TrimSpace(text) == "":
		log.WarnContext(ctx, "Completion returned an empty reply")
		text = o.deps.Messages.EmptyReply
	}
	o.send(ctx, log, req.Target(), text)
}

func (o *Orchestrator) generateImage(ctx context.Context, log *slog.Logger, req *QueuedRequest) {
	target := req.Target()

	verdict := o.deps.Quota.Check(ctx, req.RequestorID, req.GuildID)
	if !verdict.Allowed {
		log.InfoContext(ctx, "Image generation refused by quota", "reason", verdict.Reason)
		o.send(ctx, log, target, verdict.Reason)
		return
	}

	if o.deps.Images == nil {
		log.WarnContext(ctx, "Image generation requested but no image backend is configured")
		o.send(ctx, log, target, o.deps.Messages.ImageError)
		return
	}

	o.deps.Quota.Increment(ctx, req.RequestorID, req.GuildID)

	url, err := o.deps.Images.Generate(ctx, req.TriggerText)
	if err == nil && url == "" {
		err = ErrNoImage
	}
	if err != nil {
		log.ErrorContext(ctx, "Image generation failed, releasing quota", "error", err)
		o.deps.Quota.Decrement(ctx, req.RequestorID, req.GuildID)
		o.send(ctx, log, target, o.deps.Messages.ImageError)
		return
	}

	if err := o.deps.Sink.SendImage(ctx, target, url); err != nil {
		log.ErrorContext(ctx, "Failed to deliver generated image", "error", err)
		return
	}
	log.InfoContext(ctx, "Image delivered")
}

func (o *Orchestrator) send(ctx context.Context, log *slog.Logger, target Target, text string) {
	if err := o.deps.Sink.SendText(ctx, target, text); err != nil {
		log.ErrorContext(ctx, "Failed to deliver reply", "error", err)
	}
}
