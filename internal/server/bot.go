package server

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/citadel-pow/pow-bot/internal/discord"
	"github.com/citadel-pow/pow-bot/internal/pow"
	"github.com/citadel-pow/pow-bot/internal/syncclient"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxCardBodyBytes caps the JSON body of a card request.
const MaxCardBodyBytes = 10 << 20

var (
	errMissingCardSender    = errors.New("card sender dependency required")
	errMissingPostRegistrar = errors.New("post registrar dependency required")
	errMissingCardChannel   = errors.New("card channel id required")

	dataURLPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)
)

// CardSender is implemented by *discord.Client.
type CardSender interface {
	SendCard(ctx context.Context, channelID string, card discord.Card) (string, error)
}

// PostRegistrar is implemented by *syncclient.Client.
type PostRegistrar interface {
	RegisterPost(ctx context.Context, post pow.Post) (syncclient.RegisterOutcome, error)
}

// BotDependencies wires the bot's card endpoint.
type BotDependencies struct {
	Sender    CardSender
	Registrar PostRegistrar
	ChannelID string
	Logger    *zap.Logger
}

// NewBotHandler builds the HTTP surface the bot exposes to the backend.
func NewBotHandler(deps BotDependencies) (http.Handler, error) {
	if deps.Sender == nil {
		return nil, errMissingCardSender
	}
	if deps.Registrar == nil {
		return nil, errMissingPostRegistrar
	}
	channelID := strings.TrimSpace(deps.ChannelID)
	if channelID == "" {
		return nil, errMissingCardChannel
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(limitRequestBody(MaxCardBodyBytes))

	handler := &botHandler{
		sender:    deps.Sender,
		registrar: deps.Registrar,
		channelID: channelID,
		logger:    logger,
	}
	router.POST("/send-pow-card", handler.handleSendCard)

	return router, nil
}

type botHandler struct {
	sender    CardSender
	registrar PostRegistrar
	channelID string
	logger    *zap.Logger
}

type sendCardPayload struct {
	DiscordID       string `json:"discord_id"`
	PhotoURL        string `json:"photo_url"`
	PlanText        string `json:"plan_text"`
	DonationMode    string `json:"donation_mode"`
	DurationSeconds int    `json:"duration_seconds"`
	SessionID       string `json:"session_id"`
}

func (h *botHandler) handleSendCard(c *gin.Context) {
	var request sendCardPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if request.PhotoURL == "" || request.PlanText == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo_url and plan_text are required"})
		return
	}

	image, err := decodeCardImage(request.PhotoURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photo_url must be base64 image data"})
		return
	}

	ctx := c.Request.Context()
	messageID, err := h.sender.SendCard(ctx, h.channelID, discord.Card{
		PlanText:        request.PlanText,
		DurationSeconds: request.DurationSeconds,
		Image:           image,
	})
	if err != nil {
		h.logger.Error("pow card send failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	h.logger.Info("pow card sent", zap.String("message_id", messageID))

	outcome, err := h.registrar.RegisterPost(ctx, h.cardPost(messageID, request))
	if outcome == syncclient.OutcomeFailed {
		h.logger.Warn("pow card registration failed", zap.String("message_id", messageID), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message_id": messageID,
		"channel_id": h.channelID,
	})
}

func (h *botHandler) cardPost(messageID string, request sendCardPayload) pow.Post {
	post := pow.Post{
		MessageID:    messageID,
		ChannelID:    h.channelID,
		DiscordID:    optionalString(request.DiscordID),
		SessionID:    optionalString(request.SessionID),
		PhotoURL:     optionalString(request.PhotoURL),
		PlanText:     optionalString(request.PlanText),
		DonationMode: pow.DonationMode(request.DonationMode),
	}
	if request.DurationSeconds > 0 {
		duration := request.DurationSeconds
		post.DurationSeconds = &duration
	}
	return post
}

func decodeCardImage(photoURL string) ([]byte, error) {
	payload := dataURLPrefix.ReplaceAllString(photoURL, "")
	image, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, errors.New("empty image")
	}
	return image, nil
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func limitRequestBody(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
