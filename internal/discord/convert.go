package discord

import (
	"github.com/bwmarrin/discordgo"
	"github.com/citadel-pow/pow-bot/internal/pow"
)

// ToMessage converts a discordgo message into the pipeline's read-only view.
func ToMessage(message *discordgo.Message) pow.Message {
	if message == nil {
		return pow.Message{}
	}

	converted := pow.Message{
		ID:              message.ID,
		ChannelID:       message.ChannelID,
		AuthorIsWebhook: message.WebhookID != "",
		Content:         message.Content,
	}

	for _, attachment := range message.Attachments {
		if attachment == nil {
			continue
		}
		converted.Attachments = append(converted.Attachments, pow.Attachment{
			ContentType: attachment.ContentType,
			URL:         attachment.URL,
		})
	}

	for _, embed := range message.Embeds {
		if embed == nil {
			continue
		}
		item := pow.Embed{}
		if embed.Image != nil && embed.Image.URL != "" {
			item.Image = &pow.EmbedMedia{URL: embed.Image.URL}
		}
		if embed.Thumbnail != nil && embed.Thumbnail.URL != "" {
			item.Thumbnail = &pow.EmbedMedia{URL: embed.Thumbnail.URL}
		}
		converted.Embeds = append(converted.Embeds, item)
	}

	for _, reaction := range message.Reactions {
		if reaction == nil {
			continue
		}
		converted.Reactions = append(converted.Reactions, pow.ReactionGroup{
			Emoji: emojiKey(reaction.Emoji),
			Count: reaction.Count,
		})
	}

	return converted
}

// emojiKey is the unicode character for standard emoji and the name for custom ones.
func emojiKey(emoji *discordgo.Emoji) string {
	if emoji == nil {
		return ""
	}
	return emoji.Name
}
