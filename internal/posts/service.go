package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew       = "posts.service.new"
	opCreate           = "posts.create"
	opUpdateReactions  = "posts.update_reactions"
	opGet              = "posts.get"
	reasonInvalidInput = "invalid_input"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// Create stores a new post. A second registration of the same message id
// fails with ErrDuplicatePost.
func (s *Service) Create(ctx context.Context, request CreateRequest) (DiscordPost, error) {
	if request.MessageID == "" {
		return DiscordPost{}, newServiceError(opCreate, reasonInvalidInput, fmt.Errorf("%w: empty", ErrInvalidMessageID))
	}
	channelID := strings.TrimSpace(request.ChannelID)
	if channelID == "" {
		return DiscordPost{}, newServiceError(opCreate, reasonInvalidInput, fmt.Errorf("%w: empty", ErrInvalidChannelID))
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return DiscordPost{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	donationMode := strings.TrimSpace(request.DonationMode)
	if donationMode == "" {
		donationMode = DefaultDonationMode
	}

	now := s.clock().UTC().Unix()
	post := DiscordPost{
		ID:               id,
		MessageID:        request.MessageID.String(),
		ChannelID:        channelID,
		DiscordID:        request.DiscordID,
		SessionID:        request.SessionID,
		PhotoURL:         request.PhotoURL,
		PlanText:         request.PlanText,
		DonationMode:     donationMode,
		DurationSeconds:  request.DurationSeconds,
		Reactions:        map[string]int{},
		CreatedAtSeconds: now,
		UpdatedAtSeconds: now,
	}

	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		if isUniqueViolation(err) {
			return DiscordPost{}, newServiceError(opCreate, "duplicate", fmt.Errorf("%w: %s", ErrDuplicatePost, post.MessageID))
		}
		s.logError(opCreate, "insert_failed", err, zap.String("message_id", post.MessageID))
		return DiscordPost{}, newServiceError(opCreate, "insert_failed", err)
	}

	s.logger.Info("discord post registered",
		zap.String("message_id", post.MessageID),
		zap.String("donation_mode", post.DonationMode))
	return post, nil
}

// UpdateReactions replaces the stored reaction counts for a post.
func (s *Service) UpdateReactions(ctx context.Context, messageID MessageID, count int, reactions map[string]int) (DiscordPost, error) {
	if messageID == "" {
		return DiscordPost{}, newServiceError(opUpdateReactions, reasonInvalidInput, fmt.Errorf("%w: empty", ErrInvalidMessageID))
	}
	if count < 0 {
		count = 0
	}
	stored := make(map[string]int, len(reactions))
	for emoji, value := range reactions {
		stored[emoji] = value
	}

	var post DiscordPost
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("message_id = ?", messageID.String()).Take(&post).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opUpdateReactions, "not_found", fmt.Errorf("%w: %s", ErrPostNotFound, messageID))
		}
		if err != nil {
			s.logError(opUpdateReactions, "select_failed", err, zap.String("message_id", messageID.String()))
			return newServiceError(opUpdateReactions, "select_failed", err)
		}

		post.ReactionCount = count
		post.Reactions = stored
		post.UpdatedAtSeconds = s.clock().UTC().Unix()
		if err := tx.Save(&post).Error; err != nil {
			s.logError(opUpdateReactions, "save_failed", err, zap.String("message_id", messageID.String()))
			return newServiceError(opUpdateReactions, "save_failed", err)
		}
		return nil
	})
	if txErr != nil {
		return DiscordPost{}, txErr
	}

	s.logger.Debug("discord post reactions updated",
		zap.String("message_id", post.MessageID),
		zap.Int("reaction_count", post.ReactionCount))
	return post, nil
}

// Get loads a post by message id.
func (s *Service) Get(ctx context.Context, messageID MessageID) (DiscordPost, error) {
	if messageID == "" {
		return DiscordPost{}, newServiceError(opGet, reasonInvalidInput, fmt.Errorf("%w: empty", ErrInvalidMessageID))
	}
	var post DiscordPost
	err := s.db.WithContext(ctx).Where("message_id = ?", messageID.String()).Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DiscordPost{}, newServiceError(opGet, "not_found", fmt.Errorf("%w: %s", ErrPostNotFound, messageID))
	}
	if err != nil {
		s.logError(opGet, "select_failed", err, zap.String("message_id", messageID.String()))
		return DiscordPost{}, newServiceError(opGet, "select_failed", err)
	}
	if post.Reactions == nil {
		post.Reactions = map[string]int{}
	}
	return post, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	if s.logger == nil {
		return
	}
	allFields := append([]zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
		zap.Error(err),
	}, fields...)
	s.logger.Error("posts service failure", allFields...)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
