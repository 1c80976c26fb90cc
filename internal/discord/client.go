package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/citadel-pow/pow-bot/internal/pow"
)

// CardFileName is the attachment name used for POW cards.
const CardFileName = "pow-card.png"

var (
	errMissingSession = errors.New("discord: session is required")
	errEmptyCardImage = errors.New("discord: card image is empty")
)

// RESTSession is the subset of *discordgo.Session the client depends on.
type RESTSession interface {
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Card is a rendered POW card ready to post.
type Card struct {
	PlanText        string
	DurationSeconds int
	Image           []byte
}

// Content formats the card caption: the bold plan followed by the duration.
func (c Card) Content() string {
	seconds := c.DurationSeconds
	if seconds < 0 {
		seconds = 0
	}
	minutes := seconds / 60
	remainder := seconds % 60
	duration := fmt.Sprintf("%d분", minutes)
	if remainder > 0 {
		duration = fmt.Sprintf("%d분 %d초", minutes, remainder)
	}
	return fmt.Sprintf("**%s**\n⏱️ %s", c.PlanText, duration)
}

// Client adapts the Discord REST API to the pipeline's interfaces.
type Client struct {
	session RESTSession
}

// NewClient wraps a session.
func NewClient(session RESTSession) (*Client, error) {
	if session == nil {
		return nil, errMissingSession
	}
	return &Client{session: session}, nil
}

// FetchPage returns up to limit messages older than before, newest first.
func (c *Client) FetchPage(ctx context.Context, channelID string, limit int, before string) ([]pow.Message, error) {
	messages, err := c.session.ChannelMessages(channelID, limit, before, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list channel messages: %w", err)
	}
	converted := make([]pow.Message, 0, len(messages))
	for _, message := range messages {
		if message == nil {
			continue
		}
		item := ToMessage(message)
		if item.ChannelID == "" {
			item.ChannelID = channelID
		}
		converted = append(converted, item)
	}
	return converted, nil
}

// ResolveMessage fetches the current state of a single message.
func (c *Client) ResolveMessage(ctx context.Context, channelID, messageID string) (pow.Message, error) {
	message, err := c.session.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return pow.Message{}, fmt.Errorf("fetch message %s: %w", messageID, err)
	}
	resolved := ToMessage(message)
	if resolved.ChannelID == "" {
		resolved.ChannelID = channelID
	}
	return resolved, nil
}

// SendCard posts a card image with its caption and returns the new message id.
func (c *Client) SendCard(ctx context.Context, channelID string, card Card) (string, error) {
	if len(card.Image) == 0 {
		return "", errEmptyCardImage
	}
	message, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: card.Content(),
		Files: []*discordgo.File{{
			Name:        CardFileName,
			ContentType: "image/png",
			Reader:      bytes.NewReader(card.Image),
		}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("send card: %w", err)
	}
	if message == nil || strings.TrimSpace(message.ID) == "" {
		return "", errors.New("send card: empty message returned")
	}
	return message.ID, nil
}
