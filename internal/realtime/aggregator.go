package realtime

import (
	"context"
	"errors"
	"strings"

	"github.com/citadel-pow/pow-bot/internal/pow"
	"go.uber.org/zap"
)

var (
	errMissingChannelID = errors.New("realtime: watched channel id is required")
	errMissingSyncer    = errors.New("realtime: reaction syncer is required")
	errMissingResolver  = errors.New("realtime: message resolver is required")
)

// ReactionSyncer pushes a reaction snapshot to the backend.
type ReactionSyncer interface {
	SyncReactions(ctx context.Context, messageID string, snapshot pow.ReactionSnapshot) error
}

// MessageResolver fetches the full current state of a message.
type MessageResolver interface {
	ResolveMessage(ctx context.Context, channelID, messageID string) (pow.Message, error)
}

// Config wires an Aggregator.
type Config struct {
	ChannelID string
	SelfID    string
	Syncer    ReactionSyncer
	Resolver  MessageResolver
	Logger    *zap.Logger
}

// Aggregator keeps backend reaction counts in step with the watched channel.
// Each handled event recomputes the full snapshot, so out-of-order backend
// completions converge on the next mutation.
type Aggregator struct {
	channelID string
	selfID    string
	syncer    ReactionSyncer
	resolver  MessageResolver
	logger    *zap.Logger
}

// NewAggregator validates the configuration and constructs an Aggregator.
func NewAggregator(cfg Config) (*Aggregator, error) {
	channelID := strings.TrimSpace(cfg.ChannelID)
	if channelID == "" {
		return nil, errMissingChannelID
	}
	if cfg.Syncer == nil {
		return nil, errMissingSyncer
	}
	if cfg.Resolver == nil {
		return nil, errMissingResolver
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		channelID: channelID,
		selfID:    strings.TrimSpace(cfg.SelfID),
		syncer:    cfg.Syncer,
		resolver:  cfg.Resolver,
		logger:    logger,
	}, nil
}

// Run consumes events one at a time until ctx is done or the stream closes.
func (a *Aggregator) Run(ctx context.Context, events <-chan Event) error {
	a.logger.Info("reaction monitoring started", zap.String("channel_id", a.channelID))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			a.Handle(ctx, event)
		}
	}
}

// Handle processes a single event. Errors never escape; they are logged and
// the event is dropped.
func (a *Aggregator) Handle(ctx context.Context, event Event) {
	switch event.Kind {
	case EventReactionAdded, EventReactionRemoved:
		a.handleReactionChange(ctx, event)
	case EventReactionsCleared:
		a.handleReactionsCleared(ctx, event)
	default:
		a.logger.Warn("unknown reaction event", zap.String("kind", string(event.Kind)))
	}
}

func (a *Aggregator) handleReactionChange(ctx context.Context, event Event) {
	if a.selfID != "" && event.ActorID == a.selfID {
		return
	}
	if event.ChannelID != a.channelID {
		return
	}

	message := event.Message
	if event.IsPartial() {
		resolved, err := a.resolver.ResolveMessage(ctx, event.ChannelID, event.MessageID)
		if err != nil {
			a.logger.Warn("message resolution failed",
				zap.String("message_id", event.MessageID),
				zap.Error(err))
			return
		}
		message = &resolved
	}
	if message.ChannelID != "" && message.ChannelID != a.channelID {
		return
	}

	a.logger.Debug("reaction changed",
		zap.String("kind", string(event.Kind)),
		zap.String("message_id", event.MessageID),
		zap.String("actor_id", event.ActorID),
		zap.String("emoji", event.Emoji))

	snapshot := pow.SnapshotOf(message.Reactions)
	_ = a.syncer.SyncReactions(ctx, event.MessageID, snapshot)
}

func (a *Aggregator) handleReactionsCleared(ctx context.Context, event Event) {
	if event.ChannelID != a.channelID {
		return
	}
	a.logger.Debug("reactions cleared", zap.String("message_id", event.MessageID))
	_ = a.syncer.SyncReactions(ctx, event.MessageID, pow.ZeroSnapshot())
}
