package pow

// DonationMode enumerates the activity categories a POW post can belong to.
type DonationMode string

const (
	DonationModeWriting DonationMode = "pow-writing"
	DonationModeMusic   DonationMode = "pow-music"
	DonationModeStudy   DonationMode = "pow-study"
	DonationModeArt     DonationMode = "pow-art"
	DonationModeReading DonationMode = "pow-reading"
	DonationModeService DonationMode = "pow-service"
)

// String returns the wire value of the mode.
func (m DonationMode) String() string {
	return string(m)
}

// Attachment is a file attached to a channel message.
type Attachment struct {
	ContentType string
	URL         string
}

// EmbedMedia is the image or thumbnail slot of an embed.
type EmbedMedia struct {
	URL string
}

// Embed carries the media slots of a rich embed. Nil slots are absent.
type Embed struct {
	Image     *EmbedMedia
	Thumbnail *EmbedMedia
}

// ReactionGroup is one emoji's aggregated reaction count on a message.
type ReactionGroup struct {
	Emoji string
	Count int
}

// Message is the read-only view of a channel message used by the pipeline.
type Message struct {
	ID              string
	ChannelID       string
	AuthorIsWebhook bool
	Content         string
	Attachments     []Attachment
	Embeds          []Embed
	Reactions       []ReactionGroup
}

// Post is the registration payload for a POW post on the backend.
type Post struct {
	MessageID       string       `json:"message_id"`
	ChannelID       string       `json:"channel_id"`
	DiscordID       *string      `json:"discord_id"`
	SessionID       *string      `json:"session_id,omitempty"`
	PhotoURL        *string      `json:"photo_url"`
	PlanText        *string      `json:"plan_text"`
	DonationMode    DonationMode `json:"donation_mode"`
	DurationSeconds *int         `json:"duration_seconds,omitempty"`
}

// NewPost builds the registration payload for a classified message.
func NewPost(message Message, fields Fields) Post {
	return Post{
		MessageID:    message.ID,
		ChannelID:    message.ChannelID,
		DiscordID:    fields.DiscordID,
		PhotoURL:     fields.PhotoURL,
		PlanText:     fields.PlanText,
		DonationMode: fields.DonationMode,
	}
}
