package posts

import (
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidMessageID indicates that a message identifier is empty or exceeds storage bounds.
	ErrInvalidMessageID = errors.New("posts: invalid message id")
	// ErrInvalidChannelID indicates that a channel identifier is empty or exceeds storage bounds.
	ErrInvalidChannelID = errors.New("posts: invalid channel id")
	// ErrDuplicatePost is returned when a post for the message already exists.
	ErrDuplicatePost = errors.New("posts: duplicate message id")
	// ErrPostNotFound is returned when no post matches the message id.
	ErrPostNotFound = errors.New("posts: post not found")
)

// MessageID is a validated Discord message identifier.
type MessageID string

// NewMessageID validates raw input and returns a MessageID.
func NewMessageID(rawInput string) (MessageID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidMessageID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidMessageID, maxIdentifierLength)
	}
	return MessageID(trimmed), nil
}

// String returns the underlying identifier.
func (id MessageID) String() string {
	return string(id)
}

// DiscordPost is the persisted record of a POW post and its latest reaction counts.
type DiscordPost struct {
	ID               string         `gorm:"column:id;primaryKey;size:36;not null" json:"id"`
	MessageID        string         `gorm:"column:message_id;size:190;not null;uniqueIndex:discord_posts_message_id_key" json:"message_id"`
	ChannelID        string         `gorm:"column:channel_id;size:190;not null" json:"channel_id"`
	DiscordID        *string        `gorm:"column:discord_id;size:190" json:"discord_id"`
	SessionID        *string        `gorm:"column:session_id;size:190" json:"session_id,omitempty"`
	PhotoURL         *string        `gorm:"column:photo_url;type:text" json:"photo_url"`
	PlanText         *string        `gorm:"column:plan_text;type:text" json:"plan_text"`
	DonationMode     string         `gorm:"column:donation_mode;size:32;not null" json:"donation_mode"`
	DurationSeconds  *int           `gorm:"column:duration_seconds" json:"duration_seconds,omitempty"`
	ReactionCount    int            `gorm:"column:reaction_count;not null;default:0" json:"reaction_count"`
	Reactions        map[string]int `gorm:"column:reactions;type:text;serializer:json" json:"reactions"`
	CreatedAtSeconds int64          `gorm:"column:created_at_s;not null" json:"created_at_s"`
	UpdatedAtSeconds int64          `gorm:"column:updated_at_s;not null" json:"updated_at_s"`
}

// TableName provides the explicit table binding for GORM.
func (DiscordPost) TableName() string {
	return "discord_posts"
}

// CreateRequest is the registration input for a new post.
type CreateRequest struct {
	MessageID       MessageID
	ChannelID       string
	DiscordID       *string
	SessionID       *string
	PhotoURL        *string
	PlanText        *string
	DonationMode    string
	DurationSeconds *int
}

// DefaultDonationMode is stored when the request omits a mode.
const DefaultDonationMode = "pow-writing"
