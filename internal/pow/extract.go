package pow

import (
	"regexp"
	"strings"
)

var (
	planPattern    = regexp.MustCompile(`목표[:\s]*(.+)`)
	mentionPattern = regexp.MustCompile(`<@!?(\d+)>`)
)

type donationKeywords struct {
	mode    DonationMode
	native  string
	english string
}

// donationPriority is checked in order; the first category with a keyword
// anywhere in the content wins, regardless of where it appears.
var donationPriority = []donationKeywords{
	{mode: DonationModeWriting, native: "글쓰기", english: "Writing"},
	{mode: DonationModeMusic, native: "음악", english: "Music"},
	{mode: DonationModeStudy, native: "공부", english: "Study"},
	{mode: DonationModeArt, native: "그림", english: "Art"},
	{mode: DonationModeReading, native: "독서", english: "Reading"},
	{mode: DonationModeService, native: "봉사", english: "Service"},
}

// DefaultDonationMode applies when no category keyword is present.
const DefaultDonationMode = DonationModeWriting

// Fields is the structured data recovered from a POW message.
type Fields struct {
	PlanText     *string
	DonationMode DonationMode
	PhotoURL     *string
	DiscordID    *string
}

// ExtractFields parses plan text, category, photo and author mention out of a
// message. Missing data yields nil fields; it never fails.
func ExtractFields(message Message) Fields {
	return Fields{
		PlanText:     extractPlanText(message.Content),
		DonationMode: extractDonationMode(message.Content),
		PhotoURL:     extractPhotoURL(message),
		DiscordID:    extractDiscordID(message.Content),
	}
}

func extractPlanText(content string) *string {
	match := planPattern.FindStringSubmatch(content)
	if match == nil {
		return nil
	}
	plan := strings.TrimSpace(match[1])
	if plan == "" {
		return nil
	}
	return &plan
}

func extractDonationMode(content string) DonationMode {
	for _, candidate := range donationPriority {
		if strings.Contains(content, candidate.native) || strings.Contains(content, candidate.english) {
			return candidate.mode
		}
	}
	return DefaultDonationMode
}

func extractPhotoURL(message Message) *string {
	for _, attachment := range message.Attachments {
		if isImageAttachment(attachment) {
			url := attachment.URL
			return &url
		}
	}
	for _, embed := range message.Embeds {
		if embed.Image != nil {
			url := embed.Image.URL
			return &url
		}
	}
	return nil
}

func extractDiscordID(content string) *string {
	match := mentionPattern.FindStringSubmatch(content)
	if match == nil {
		return nil
	}
	id := match[1]
	return &id
}
