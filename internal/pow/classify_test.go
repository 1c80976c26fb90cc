package pow

import "testing"

func TestIsPOWPost(t *testing.T) {
	tests := []struct {
		name     string
		message  Message
		expected bool
	}{
		{
			name:     "webhook-without-media",
			message:  Message{AuthorIsWebhook: true, Content: "오늘도 완료"},
			expected: true,
		},
		{
			name:     "plain-text",
			message:  Message{Content: "안녕하세요"},
			expected: false,
		},
		{
			name: "image-attachment",
			message: Message{
				Attachments: []Attachment{{ContentType: "image/png", URL: "https://cdn.example/a.png"}},
			},
			expected: true,
		},
		{
			name: "non-image-attachment",
			message: Message{
				Attachments: []Attachment{{ContentType: "application/pdf", URL: "https://cdn.example/a.pdf"}},
			},
			expected: false,
		},
		{
			name: "attachment-without-content-type",
			message: Message{
				Attachments: []Attachment{{URL: "https://cdn.example/blob"}},
			},
			expected: false,
		},
		{
			name: "embed-with-image",
			message: Message{
				Embeds: []Embed{{Image: &EmbedMedia{URL: "https://cdn.example/e.png"}}},
			},
			expected: true,
		},
		{
			name: "embed-with-thumbnail",
			message: Message{
				Embeds: []Embed{{Thumbnail: &EmbedMedia{URL: "https://cdn.example/t.png"}}},
			},
			expected: true,
		},
		{
			name: "embed-without-media",
			message: Message{
				Embeds: []Embed{{}},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPOWPost(tt.message); got != tt.expected {
				t.Fatalf("IsPOWPost() = %v, want %v", got, tt.expected)
			}
		})
	}
}
