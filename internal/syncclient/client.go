package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/citadel-pow/pow-bot/internal/pow"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 10 * time.Second

	postsPath     = "/api/discord-posts"
	reactionsPath = "/api/discord-posts/reactions"

	conflictMarker = "unique"

	defaultSubject = "pow-bot"
)

var errMissingBaseURL = errors.New("backend url cannot be empty")

// RegisterOutcome is the result of a registration attempt.
type RegisterOutcome string

const (
	OutcomeCreated       RegisterOutcome = "created"
	OutcomeAlreadyExists RegisterOutcome = "already-exists"
	OutcomeFailed        RegisterOutcome = "failed"
)

// APIError represents a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend error (%d)", e.Status)
}

type apiErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// TokenSource mints bearer tokens for outgoing requests.
type TokenSource interface {
	IssueServiceToken(subject string) (string, error)
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Tokens is optional; when set every request carries a bearer token for Subject.
	Tokens     TokenSource
	Subject    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client issues create and reaction-update calls against the POW backend.
// Calls are never retried; failures are logged and reported to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	subject    string
	logger     *zap.Logger
}

// NewClient validates the base URL and constructs a Client.
func NewClient(cfg Config) (*Client, error) {
	normalized, err := NormalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	subject := strings.TrimSpace(cfg.Subject)
	if subject == "" {
		subject = defaultSubject
	}
	return &Client{
		baseURL:    normalized,
		httpClient: httpClient,
		tokens:     cfg.Tokens,
		subject:    subject,
		logger:     logger,
	}, nil
}

// NormalizeBaseURL trims trailing slashes and requires a scheme.
func NormalizeBaseURL(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", errMissingBaseURL
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("invalid backend url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("backend url must include scheme and host: %q", value)
	}
	return strings.TrimRight(value, "/"), nil
}

type reactionsRequest struct {
	MessageID     string         `json:"message_id"`
	ReactionCount int            `json:"reaction_count"`
	Reactions     map[string]int `json:"reactions"`
}

// RegisterPost creates the backend record for a POW post. A conflict is
// reported as OutcomeAlreadyExists with a nil error.
func (c *Client) RegisterPost(ctx context.Context, post pow.Post) (RegisterOutcome, error) {
	err := c.doJSON(ctx, http.MethodPost, postsPath, post)
	if err == nil {
		c.logger.Info("discord post registered", zap.String("message_id", post.MessageID))
		return OutcomeCreated, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && isConflictResponse(apiErr.Status, apiErr.Message) {
		c.logger.Info("discord post already exists", zap.String("message_id", post.MessageID))
		return OutcomeAlreadyExists, nil
	}

	c.logger.Error("discord post registration failed",
		zap.String("message_id", post.MessageID),
		zap.Error(err))
	return OutcomeFailed, err
}

// SyncReactions pushes the full reaction snapshot for a message.
func (c *Client) SyncReactions(ctx context.Context, messageID string, snapshot pow.ReactionSnapshot) error {
	reactions := snapshot.ByEmoji
	if reactions == nil {
		reactions = map[string]int{}
	}
	request := reactionsRequest{
		MessageID:     messageID,
		ReactionCount: snapshot.Total,
		Reactions:     reactions,
	}
	if err := c.doJSON(ctx, http.MethodPut, reactionsPath, request); err != nil {
		c.logger.Error("reaction sync failed",
			zap.String("message_id", messageID),
			zap.Int("reaction_count", snapshot.Total),
			zap.Error(err))
		return err
	}
	c.logger.Info("reaction sync succeeded",
		zap.String("message_id", messageID),
		zap.Int("reaction_count", snapshot.Total))
	return nil
}

// isConflictResponse decides whether a failed create means the record already
// exists. Some backends surface unique-constraint violations as a generic
// error whose text mentions "unique" instead of a 409.
func isConflictResponse(status int, errorMessage string) bool {
	if status == http.StatusConflict {
		return true
	}
	return strings.Contains(strings.ToLower(errorMessage), conflictMarker)
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody any) error {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		token, err := c.tokens.IssueServiceToken(c.subject)
		if err != nil {
			return fmt.Errorf("issue service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload apiErrorPayload
		if err := json.Unmarshal(respData, &payload); err == nil {
			apiErr.Message = payload.Error
			if apiErr.Message == "" {
				apiErr.Message = payload.Message
			}
		} else {
			apiErr.Message = strings.TrimSpace(string(respData))
		}
		return apiErr
	}
	return nil
}
