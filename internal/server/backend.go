package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/citadel-pow/pow-bot/internal/posts"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	subjectContextKey = "pow_service_subject"
	// duplicatePostMessage mirrors the production backend's constraint error text.
	duplicatePostMessage = `duplicate key value violates unique constraint "discord_posts_message_id_key"`
)

var (
	errMissingPostStore     = errors.New("post store dependency required")
	errInvalidAuthorization = errors.New("authorization header missing or invalid")
)

// PostStore is implemented by *posts.Service.
type PostStore interface {
	Create(ctx context.Context, request posts.CreateRequest) (posts.DiscordPost, error)
	UpdateReactions(ctx context.Context, messageID posts.MessageID, count int, reactions map[string]int) (posts.DiscordPost, error)
	Get(ctx context.Context, messageID posts.MessageID) (posts.DiscordPost, error)
}

// TokenValidator is implemented by *auth.TokenIssuer.
type TokenValidator interface {
	ValidateToken(token string) (string, error)
}

// BackendDependencies wires the reference backend. A nil Tokens leaves the
// API unauthenticated.
type BackendDependencies struct {
	Posts  PostStore
	Tokens TokenValidator
	Logger *zap.Logger
}

// NewBackendHandler builds the discord-posts API.
func NewBackendHandler(deps BackendDependencies) (http.Handler, error) {
	if deps.Posts == nil {
		return nil, errMissingPostStore
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	handler := &backendHandler{
		posts:  deps.Posts,
		tokens: deps.Tokens,
		logger: logger,
	}

	api := router.Group("/api")
	if deps.Tokens != nil {
		api.Use(handler.authorizeRequest)
	}
	api.POST("/discord-posts", handler.handleCreatePost)
	api.PUT("/discord-posts/reactions", handler.handleUpdateReactions)
	api.GET("/discord-posts/:message_id", handler.handleGetPost)

	return router, nil
}

type backendHandler struct {
	posts  PostStore
	tokens TokenValidator
	logger *zap.Logger
}

type createPostPayload struct {
	MessageID       string  `json:"message_id"`
	ChannelID       string  `json:"channel_id"`
	DiscordID       *string `json:"discord_id"`
	SessionID       *string `json:"session_id"`
	PhotoURL        *string `json:"photo_url"`
	PlanText        *string `json:"plan_text"`
	DonationMode    string  `json:"donation_mode"`
	DurationSeconds *int    `json:"duration_seconds"`
}

type updateReactionsPayload struct {
	MessageID     string         `json:"message_id"`
	ReactionCount int            `json:"reaction_count"`
	Reactions     map[string]int `json:"reactions"`
}

func (h *backendHandler) handleCreatePost(c *gin.Context) {
	var request createPostPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	messageID, err := posts.NewMessageID(request.MessageID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_message_id"})
		return
	}

	post, err := h.posts.Create(c.Request.Context(), posts.CreateRequest{
		MessageID:       messageID,
		ChannelID:       request.ChannelID,
		DiscordID:       request.DiscordID,
		SessionID:       request.SessionID,
		PhotoURL:        request.PhotoURL,
		PlanText:        request.PlanText,
		DonationMode:    request.DonationMode,
		DurationSeconds: request.DurationSeconds,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, post)
	case errors.Is(err, posts.ErrDuplicatePost):
		c.JSON(http.StatusConflict, gin.H{"error": duplicatePostMessage})
	case errors.Is(err, posts.ErrInvalidChannelID), errors.Is(err, posts.ErrInvalidMessageID):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
	default:
		h.logger.Error("failed to create discord post", zap.String("message_id", messageID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create_failed"})
	}
}

func (h *backendHandler) handleUpdateReactions(c *gin.Context) {
	var request updateReactionsPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	messageID, err := posts.NewMessageID(request.MessageID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_message_id"})
		return
	}

	post, err := h.posts.UpdateReactions(c.Request.Context(), messageID, request.ReactionCount, request.Reactions)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, post)
	case errors.Is(err, posts.ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "discord post not found"})
	default:
		h.logger.Error("failed to update reactions", zap.String("message_id", messageID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update_failed"})
	}
}

func (h *backendHandler) handleGetPost(c *gin.Context) {
	messageID, err := posts.NewMessageID(c.Param("message_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_message_id"})
		return
	}

	post, err := h.posts.Get(c.Request.Context(), messageID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, post)
	case errors.Is(err, posts.ErrPostNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "discord post not found"})
	default:
		h.logger.Error("failed to load discord post", zap.String("message_id", messageID.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load_failed"})
	}
}

func (h *backendHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}
	subject, err := h.tokens.ValidateToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Set(subjectContextKey, subject)
	c.Next()
}
