package backfill

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/citadel-pow/pow-bot/internal/pow"
	"github.com/citadel-pow/pow-bot/internal/syncclient"
	"go.uber.org/zap"
)

const (
	DefaultPageSize     = 100
	DefaultMaxPages     = 5
	DefaultPageDelay    = time.Second
	DefaultMessageDelay = 500 * time.Millisecond
)

var (
	errMissingChannelID = errors.New("backfill: channel id is required")
	errMissingHistory   = errors.New("backfill: history fetcher is required")
	errMissingBackend   = errors.New("backfill: backend client is required")
)

// HistoryFetcher returns up to limit messages older than before, newest first.
// An empty before starts from the most recent message.
type HistoryFetcher interface {
	FetchPage(ctx context.Context, channelID string, limit int, before string) ([]pow.Message, error)
}

// Backend registers posts and updates their reaction counts.
type Backend interface {
	RegisterPost(ctx context.Context, post pow.Post) (syncclient.RegisterOutcome, error)
	SyncReactions(ctx context.Context, messageID string, snapshot pow.ReactionSnapshot) error
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Config wires an Orchestrator. Non-positive page settings and negative delays
// fall back to the package defaults.
type Config struct {
	ChannelID    string
	PageSize     int
	MaxPages     int
	PageDelay    time.Duration
	MessageDelay time.Duration
	History      HistoryFetcher
	Backend      Backend
	Sleep        SleepFunc
	Logger       *zap.Logger
}

// Summary tallies one backfill run.
type Summary struct {
	Scanned    int `json:"scanned"`
	Classified int `json:"classified"`
	Registered int `json:"registered"`
	Existed    int `json:"existed"`
	Updated    int `json:"updated"`
	Failed     int `json:"failed"`
}

// Orchestrator rebuilds backend records from channel history, strictly sequentially.
type Orchestrator struct {
	channelID    string
	pageSize     int
	maxPages     int
	pageDelay    time.Duration
	messageDelay time.Duration
	history      HistoryFetcher
	backend      Backend
	sleep        SleepFunc
	logger       *zap.Logger
}

// NewOrchestrator validates the configuration and applies defaults.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	channelID := strings.TrimSpace(cfg.ChannelID)
	if channelID == "" {
		return nil, errMissingChannelID
	}
	if cfg.History == nil {
		return nil, errMissingHistory
	}
	if cfg.Backend == nil {
		return nil, errMissingBackend
	}

	orchestrator := &Orchestrator{
		channelID:    channelID,
		pageSize:     cfg.PageSize,
		maxPages:     cfg.MaxPages,
		pageDelay:    cfg.PageDelay,
		messageDelay: cfg.MessageDelay,
		history:      cfg.History,
		backend:      cfg.Backend,
		sleep:        cfg.Sleep,
		logger:       cfg.Logger,
	}
	if orchestrator.pageSize <= 0 {
		orchestrator.pageSize = DefaultPageSize
	}
	if orchestrator.maxPages <= 0 {
		orchestrator.maxPages = DefaultMaxPages
	}
	if orchestrator.pageDelay < 0 {
		orchestrator.pageDelay = DefaultPageDelay
	}
	if orchestrator.messageDelay < 0 {
		orchestrator.messageDelay = DefaultMessageDelay
	}
	if orchestrator.sleep == nil {
		orchestrator.sleep = Sleep
	}
	if orchestrator.logger == nil {
		orchestrator.logger = zap.NewNop()
	}
	return orchestrator, nil
}

// Run collects history, classifies it and reconciles every POW message with
// the backend. A history fetch error aborts the run and is returned with the
// partial summary.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	summary := Summary{}

	messages, err := o.collect(ctx)
	summary.Scanned = len(messages)
	if err != nil {
		return summary, err
	}

	candidates := make([]pow.Message, 0, len(messages))
	for _, message := range messages {
		if pow.IsPOWPost(message) {
			candidates = append(candidates, message)
		}
	}
	summary.Classified = len(candidates)
	o.logger.Info("history classified",
		zap.Int("scanned", summary.Scanned),
		zap.Int("classified", summary.Classified))

	for index, message := range candidates {
		if index > 0 {
			if err := o.sleep(ctx, o.messageDelay); err != nil {
				return summary, err
			}
		}
		o.reconcile(ctx, message, &summary)
	}

	o.logger.Info("backfill finished",
		zap.Int("scanned", summary.Scanned),
		zap.Int("classified", summary.Classified),
		zap.Int("registered", summary.Registered),
		zap.Int("existed", summary.Existed),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

func (o *Orchestrator) collect(ctx context.Context) ([]pow.Message, error) {
	var collected []pow.Message
	before := ""
	for page := 1; page <= o.maxPages; page++ {
		messages, err := o.history.FetchPage(ctx, o.channelID, o.pageSize, before)
		if err != nil {
			o.logger.Error("history fetch failed", zap.Int("page", page), zap.Error(err))
			return collected, fmt.Errorf("fetch history page %d: %w", page, err)
		}
		if len(messages) == 0 {
			break
		}
		collected = append(collected, messages...)
		before = messages[len(messages)-1].ID
		o.logger.Info("history page fetched",
			zap.Int("page", page),
			zap.Int("messages", len(messages)),
			zap.Int("collected", len(collected)))

		if err := o.sleep(ctx, o.pageDelay); err != nil {
			return collected, err
		}
	}
	return collected, nil
}

func (o *Orchestrator) reconcile(ctx context.Context, message pow.Message, summary *Summary) {
	fields := pow.ExtractFields(message)
	snapshot := pow.SnapshotOf(message.Reactions)
	post := pow.NewPost(message, fields)
	if post.ChannelID == "" {
		post.ChannelID = o.channelID
	}

	outcome, _ := o.backend.RegisterPost(ctx, post)
	switch outcome {
	case syncclient.OutcomeCreated:
		summary.Registered++
	case syncclient.OutcomeAlreadyExists:
		summary.Existed++
	default:
		summary.Failed++
		return
	}

	if snapshot.Total > 0 {
		if err := o.backend.SyncReactions(ctx, message.ID, snapshot); err == nil {
			summary.Updated++
		}
	}
}

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
