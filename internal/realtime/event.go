package realtime

import "github.com/citadel-pow/pow-bot/internal/pow"

// EventKind identifies a reaction mutation delivered by the gateway.
type EventKind string

const (
	EventReactionAdded    EventKind = "reaction-added"
	EventReactionRemoved  EventKind = "reaction-removed"
	EventReactionsCleared EventKind = "reactions-cleared"
)

// Event is a single reaction mutation on a channel message. A nil Message
// means the gateway only delivered a reference and it must be resolved.
type Event struct {
	Kind      EventKind
	ChannelID string
	MessageID string
	ActorID   string
	Emoji     string
	Message   *pow.Message
}

// IsPartial reports whether the message body still has to be fetched.
func (e Event) IsPartial() bool {
	return e.Message == nil
}
