// Package quota keeps the daily per-user and per-guild counters that gate
// image generation.
package quota

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"

	"github.com/edgard/relaybot/internal/database"
)

const dayLayout = "2006-01-02"

// RecordStore is the persistence the ledger needs. database.Store satisfies it.
type RecordStore interface {
	GetQuotaRecord(ctx context.Context, scope string, scopeID int64) (*database.QuotaRecord, error)
	UpdateQuotaRecord(ctx context.Context, scope string, scopeID int64, mutate func(*database.QuotaRecord)) (*database.QuotaRecord, error)
	DeleteQuotaRecordsBefore(ctx context.Context, day string) (int64, error)
}

// Limits are the daily caps and the texts returned when one is reached.
// The reason texts may contain one %d verb for the limit.
type Limits struct {
	UserDaily        int
	GuildDaily       int
	UserLimitReason  string
	GuildLimitReason string
}

// Verdict is the result of Check.
type Verdict struct {
	Allowed bool
	Reason  string
}

// Snapshot is the current usage of a user and a guild.
type Snapshot struct {
	UserCount  int
	UserLimit  int
	GuildCount int
	GuildLimit int
}

type key struct {
	scope string
	id    int64
}

// Ledger reads and updates quota counters. A record dated before today (UTC)
// counts as zero. Updates to one (scope, id) are serialized in process and each
// runs as a single store transaction. The cache mirrors every write, including
// writes the store rejected, so the process stays consistent until restart.
type Ledger struct {
	store  RecordStore
	limits Limits
	clock  clockwork.Clock
	logger *slog.Logger

	cache *lru.Cache[key, database.QuotaRecord]

	mu    sync.Mutex
	locks map[key]*sync.Mutex
}

// NewLedger creates a ledger over store. A nil clock uses the real clock.
func NewLedger(store RecordStore, limits Limits, clock clockwork.Clock, cacheSize int, logger *slog.Logger) (*Ledger, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cache, err := lru.New[key, database.QuotaRecord](max(cacheSize, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to create quota cache: %w", err)
	}
	return &Ledger{
		store:  store,
		limits: limits,
		clock:  clock,
		logger: logger.With("component", "quota_ledger"),
		cache:  cache,
		locks:  make(map[key]*sync.Mutex),
	}, nil
}

// Today returns the current UTC day key.
func (l *Ledger) Today() string {
	return l.clock.Now().UTC().Format(dayLayout)
}

// Check reports whether the user and the guild are both under their daily limits.
func (l *Ledger) Check(ctx context.Context, userID, guildID int64) Verdict {
	if count := l.count(ctx, key{database.ScopeUser, userID}); count >= l.limits.UserDaily {
		return Verdict{Reason: formatReason(l.limits.UserLimitReason, l.limits.UserDaily)}
	}
	if count := l.count(ctx, key{database.ScopeGuild, guildID}); count >= l.limits.GuildDaily {
		return Verdict{Reason: formatReason(l.limits.GuildLimitReason, l.limits.GuildDaily)}
	}
	return Verdict{Allowed: true}
}

// Snapshot returns the current usage of the user and the guild.
func (l *Ledger) Snapshot(ctx context.Context, userID, guildID int64) Snapshot {
	return Snapshot{
		UserCount:  l.count(ctx, key{database.ScopeUser, userID}),
		UserLimit:  l.limits.UserDaily,
		GuildCount: l.count(ctx, key{database.ScopeGuild, guildID}),
		GuildLimit: l.limits.GuildDaily,
	}
}

// Increment reserves one unit for both the user and the guild.
func (l *Ledger) Increment(ctx context.Context, userID, guildID int64) {
	l.adjust(ctx, key{database.ScopeUser, userID}, 1)
	l.adjust(ctx, key{database.ScopeGuild, guildID}, 1)
}

// Decrement releases one unit for both the user and the guild, never below zero.
func (l *Ledger) Decrement(ctx context.Context, userID, guildID int64) {
	l.adjust(ctx, key{database.ScopeUser, userID}, -1)
	l.adjust(ctx, key{database.ScopeGuild, guildID}, -1)
}

// Prune deletes every stored record dated before today.
func (l *Ledger) Prune(ctx context.Context) (int64, error) {
	today := l.Today()
	deleted, err := l.store.DeleteQuotaRecordsBefore(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to prune quota records: %w", err)
	}
	l.logger.InfoContext(ctx, "Pruned stale quota records", "before", today, "deleted", deleted)
	return deleted, nil
}

// count reads the current count. Read failures count as zero.
func (l *Ledger) count(ctx context.Context, k key) int {
	today := l.Today()

	if rec, ok := l.cache.Get(k); ok {
		return effectiveCount(rec, today)
	}

	rec, err := l.store.GetQuotaRecord(ctx, k.scope, k.id)
	if err != nil {
		l.logger.WarnContext(ctx, "Failed to read quota record, treating as zero", "scope", k.scope, "scope_id", k.id, "error", err)
		return 0
	}
	if rec == nil {
		return 0
	}
	l.cache.Add(k, *rec)
	return effectiveCount(*rec, today)
}

func (l *Ledger) adjust(ctx context.Context, k key, delta int) {
	lock := l.lockFor(k)
	lock.Lock()
	defer lock.Unlock()

	today := l.Today()
	mutate := func(rec *database.QuotaRecord) {
		if rec.Day != today {
			rec.Day = today
			rec.Count = 0
		}
		rec.Count = max(rec.Count+delta, 0)
	}

	rec, err := l.store.UpdateQuotaRecord(ctx, k.scope, k.id, mutate)
	if err != nil {
		l.logger.ErrorContext(ctx, "Failed to persist quota change, keeping it in memory only",
			"scope", k.scope, "scope_id", k.id, "delta", delta, "error", err)
		cached, ok := l.cache.Get(k)
		if !ok {
			if stored, getErr := l.store.GetQuotaRecord(ctx, k.scope, k.id); getErr == nil && stored != nil {
				cached = *stored
			}
		}
		cached.Scope, cached.ScopeID = k.scope, k.id
		mutate(&cached)
		l.cache.Add(k, cached)
		return
	}
	l.cache.Add(k, *rec)
	l.logger.DebugContext(ctx, "Quota adjusted", "scope", k.scope, "scope_id", k.id, "delta", delta, "count", rec.Count)
}

func (l *Ledger) lockFor(k key) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[k]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[k] = lock
	}
	return lock
}

func effectiveCount(rec database.QuotaRecord, today string) int {
	if rec.Day != today {
		return 0
	}
	return max(rec.Count, 0)
}

// formatReason fills the first %d of format with limit. Formats without a %d
// verb are returned as written.
func formatReason(format string, limit int) string {
	if format == "" {
		format = "daily limit of %d reached"
	}
	i := strings.Index(format, "%d")
	if i < 0 {
		return format
	}
	return format[:i] + strconv.Itoa(limit) + format[i+2:]
}
