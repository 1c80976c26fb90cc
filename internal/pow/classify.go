package pow

import "strings"

const imageContentTypePrefix = "image/"

// IsPOWPost reports whether a message looks like a POW submission. The
// heuristic favours inclusion: webhook origin, an image attachment, or an
// embed with an image or thumbnail all qualify.
func IsPOWPost(message Message) bool {
	if message.AuthorIsWebhook {
		return true
	}
	for _, attachment := range message.Attachments {
		if isImageAttachment(attachment) {
			return true
		}
	}
	for _, embed := range message.Embeds {
		if embed.Image != nil || embed.Thumbnail != nil {
			return true
		}
	}
	return false
}

func isImageAttachment(attachment Attachment) bool {
	return strings.HasPrefix(attachment.ContentType, imageContentTypePrefix)
}
