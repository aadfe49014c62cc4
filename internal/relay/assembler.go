package relay

import (
	"context"
	"io"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// describableTypes are the attachment media types sent to the vision backend.
var describableTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// AssemblerDeps are the collaborators of an Assembler.
type AssemblerDeps struct {
	History       HistorySource
	Members       MemberSource
	Resolver      AttachmentResolver
	Describer     Describer
	Guilds        GuildSettingsSource
	Personalities PersonalitySource
	Memory        MemoryReader
	Quota         QuotaReader
	Clock         clockwork.Clock
	Logger        *slog.Logger
}

// AssemblerConfig tunes context assembly.
type AssemblerConfig struct {
	HistoryLimit       int
	MaxImages          int
	VisionConcurrency  int
	DefaultPersonality string
}

// Assembler builds a QueuedRequest from an event.
type Assembler struct {
	deps AssemblerDeps
	cfg  AssemblerConfig
	log  *slog.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(deps AssemblerDeps, cfg AssemblerConfig) *Assembler {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg.VisionConcurrency = max(cfg.VisionConcurrency, 1)
	return &Assembler{deps: deps, cfg: cfg, log: logger.With("component", "assembler")}
}

// Assemble gathers the context for ev. It never fails: each piece that cannot
// be fetched is logged and left empty.
func (a *Assembler) Assemble(ctx context.Context, ev Event) *QueuedRequest {
	req := &QueuedRequest{
		ID:            uuid.NewString(),
		RequestorID:   ev.AuthorID,
		RequestorName: ev.AuthorName,
		GuildID:       ev.GuildID,
		GuildTitle:    ev.GuildTitle,
		ChannelID:     ev.ChannelID,
		MessageID:     ev.MessageID,
		TriggerText:   ev.Text,
	}
	log := a.log.With("request_id", req.ID, "guild_id", ev.GuildID, "user_id", ev.AuthorID)

	history, err := a.deps.History.RecentMessages(ctx, ev.GuildID, ev.ChannelID, a.cfg.HistoryLimit)
	if err != nil {
		log.WarnContext(ctx, "Failed to fetch recent history", "error", err)
		history = nil
	}
	req.RecentHistory = history
	req.ImageDescriptions = a.describeImages(ctx, log, history, ev.AuthorID)

	if members, err := a.deps.Members.Members(ctx, ev.GuildID); err != nil {
		log.WarnContext(ctx, "Failed to fetch member roster", "error", err)
	} else {
		req.Members = members
	}

	req.PersonalityText = a.personality(ctx, log, ev.GuildID)
	req.Memory = a.deps.Memory.Get(ctx, ev.AuthorID)
	req.Quota = a.deps.Quota.Snapshot(ctx, ev.AuthorID, ev.GuildID)
	req.EnqueuedAt = a.deps.Clock.Now()

	log.DebugContext(ctx, "Request assembled",
		"history", len(req.RecentHistory), "images", len(req.ImageDescriptions), "members", len(req.Members))
	return req
}

func (a *Assembler) personality(ctx context.Context, log *slog.Logger, guildID int64) string {
	id := a.deps.Guilds.Settings(ctx, guildID).PersonalityID
	if id == "" {
		id = a.cfg.DefaultPersonality
	}
	text, err := a.deps.Personalities.Text(ctx, id)
	if err != nil {
		log.WarnContext(ctx, "Failed to load personality", "personality_id", id, "error", err)
		return ""
	}
	return text
}

type imageCandidate struct {
	attachment Attachment
	message    HistoryMessage
}

// describeImages picks up to MaxImages describable attachments scanning from the
// newest message back, describes them concurrently, and returns the successful
// descriptions in scan order.
func (a *Assembler) describeImages(ctx context.Context, log *slog.Logger, history []HistoryMessage, requestorID int64) []ImageDescription {
	var candidates []imageCandidate
scan:
	for i := len(history) - 1; i >= 0; i-- {
		for _, att := range history[i].Attachments {
			if len(candidates) >= a.cfg.MaxImages {
				break scan
			}
			if describableTypes[att.MIMEType] {
				candidates = append(candidates, imageCandidate{attachment: att, message: history[i]})
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	results := make([]*ImageDescription, len(candidates))
	var g errgroup.Group
	g.SetLimit(a.cfg.VisionConcurrency)
	for i, c := range candidates {
		g.Go(func() error {
			url, err := a.deps.Resolver.ResolveURL(ctx, c.attachment.FileID)
			if err != nil {
				log.WarnContext(ctx, "Failed to resolve attachment", "file_id", c.attachment.FileID, "error", err)
				return nil
			}
			desc, err := a.deps.Describer.Describe(ctx, url, c.message.Text)
			if err != nil {
				log.WarnContext(ctx, "Failed to describe image", "file_id", c.attachment.FileID, "error", err)
				return nil
			}
			results[i] = &ImageDescription{
				SourceURL:       url,
				Description:     desc,
				OriginatingText: c.message.Text,
				AuthorName:      c.message.AuthorName,
				IsFromRequestor: c.message.AuthorID == requestorID,
			}
			return nil
		})
	}
	_ = g.Wait()

	descriptions := make([]ImageDescription, 0, len(results))
	for _, r := range results {
		if r != nil {
			descriptions = append(descriptions, *r)
		}
	}
	return descriptions
}

// requestorFirst returns descriptions with the requestor's images first, keeping
// the relative order within each group.
func requestorFirst(descriptions []ImageDescription) []ImageDescription {
	ordered := append([]ImageDescription(nil), descriptions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].IsFromRequestor && !ordered[j].IsFromRequestor
	})
	return ordered
}
