package discord

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/citadel-pow/pow-bot/internal/realtime"
	"go.uber.org/zap"
)

var (
	errMissingToken     = errors.New("discord: bot token is required")
	errMissingPublisher = errors.New("discord: event publisher is required")
)

// Intents covers message content and reaction events in guild channels.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent |
	discordgo.IntentsGuildMessageReactions

// NewSession builds an unopened bot session with the required intents.
// Events are dispatched synchronously so they reach the queue in arrival order.
func NewSession(token string) (*discordgo.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errMissingToken
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = Intents
	session.SyncEvents = true
	return session, nil
}

// Publisher accepts translated reaction events.
type Publisher interface {
	Publish(ctx context.Context, event realtime.Event) error
}

// HandlerRegistrar is implemented by *discordgo.Session.
type HandlerRegistrar interface {
	AddHandler(handler interface{}) func()
}

// Gateway turns discordgo reaction payloads into realtime events.
type Gateway struct {
	ctx       context.Context
	publisher Publisher
	logger    *zap.Logger
}

// NewGateway builds a gateway that publishes with ctx until it is done.
func NewGateway(ctx context.Context, publisher Publisher, logger *zap.Logger) (*Gateway, error) {
	if publisher == nil {
		return nil, errMissingPublisher
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{ctx: ctx, publisher: publisher, logger: logger}, nil
}

// Register attaches the reaction handlers and returns a function removing them.
func (g *Gateway) Register(registrar HandlerRegistrar) func() {
	removers := []func(){
		registrar.AddHandler(g.onReactionAdd),
		registrar.AddHandler(g.onReactionRemove),
		registrar.AddHandler(g.onReactionRemoveAll),
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

func (g *Gateway) onReactionAdd(_ *discordgo.Session, payload *discordgo.MessageReactionAdd) {
	if payload == nil {
		return
	}
	g.publish(translateReaction(realtime.EventReactionAdded, payload.MessageReaction))
}

func (g *Gateway) onReactionRemove(_ *discordgo.Session, payload *discordgo.MessageReactionRemove) {
	if payload == nil {
		return
	}
	g.publish(translateReaction(realtime.EventReactionRemoved, payload.MessageReaction))
}

func (g *Gateway) onReactionRemoveAll(_ *discordgo.Session, payload *discordgo.MessageReactionRemoveAll) {
	if payload == nil {
		return
	}
	g.publish(translateReaction(realtime.EventReactionsCleared, payload.MessageReaction))
}

func (g *Gateway) publish(event realtime.Event, ok bool) {
	if !ok {
		return
	}
	if err := g.publisher.Publish(g.ctx, event); err != nil {
		g.logger.Warn("reaction event dropped",
			zap.String("kind", string(event.Kind)),
			zap.String("message_id", event.MessageID),
			zap.Error(err))
	}
}

// translateReaction maps a reaction payload to a partial event.
func translateReaction(kind realtime.EventKind, reaction *discordgo.MessageReaction) (realtime.Event, bool) {
	if reaction == nil || reaction.MessageID == "" {
		return realtime.Event{}, false
	}
	return realtime.Event{
		Kind:      kind,
		ChannelID: reaction.ChannelID,
		MessageID: reaction.MessageID,
		ActorID:   reaction.UserID,
		Emoji:     reaction.Emoji.Name,
	}, true
}
