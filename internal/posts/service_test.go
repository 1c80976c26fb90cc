package posts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type sequenceIDProvider struct {
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("post-%d", p.next), nil
}

type failingIDProvider struct{}

func (failingIDProvider) NewID() (string, error) {
	return "", errors.New("entropy exhausted")
}

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "posts.db")
	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&DiscordPost{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return database
}

func newTestService(t *testing.T, logger *zap.Logger) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{
		Database:   openTestDatabase(t),
		Clock:      func() time.Time { return time.Unix(1700000000, 0) },
		IDProvider: &sequenceIDProvider{},
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return service
}

func mustMessageID(t *testing.T, value string) MessageID {
	t.Helper()
	id, err := NewMessageID(value)
	if err != nil {
		t.Fatalf("unexpected message id error: %v", err)
	}
	return id
}

func stringPointer(value string) *string {
	return &value
}

func TestCreateStoresPost(t *testing.T) {
	service := newTestService(t, nil)

	post, err := service.Create(context.Background(), CreateRequest{
		MessageID: mustMessageID(t, "m-1"),
		ChannelID: "chan-1",
		DiscordID: stringPointer("42"),
		PlanText:  stringPointer("에세이 완성"),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if post.ID != "post-1" || post.CreatedAtSeconds != 1700000000 {
		t.Fatalf("unexpected stored metadata: %+v", post)
	}
	if post.DonationMode != DefaultDonationMode {
		t.Fatalf("expected default donation mode, got %q", post.DonationMode)
	}

	loaded, err := service.Get(context.Background(), mustMessageID(t, "m-1"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.PlanText == nil || *loaded.PlanText != "에세이 완성" {
		t.Fatalf("unexpected plan text: %v", loaded.PlanText)
	}
	if loaded.Reactions == nil || len(loaded.Reactions) != 0 {
		t.Fatalf("expected empty reaction map, got %#v", loaded.Reactions)
	}
}

func TestCreateRejectsDuplicateMessage(t *testing.T) {
	service := newTestService(t, nil)
	request := CreateRequest{MessageID: mustMessageID(t, "m-1"), ChannelID: "chan-1"}

	if _, err := service.Create(context.Background(), request); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := service.Create(context.Background(), request)
	if !errors.Is(err, ErrDuplicatePost) {
		t.Fatalf("expected ErrDuplicatePost, got %v", err)
	}
	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) || serviceErr.Code() != "posts.create.duplicate" {
		t.Fatalf("unexpected service error: %#v", err)
	}
}

func TestCreateValidatesInput(t *testing.T) {
	service := newTestService(t, nil)

	if _, err := service.Create(context.Background(), CreateRequest{ChannelID: "chan-1"}); !errors.Is(err, ErrInvalidMessageID) {
		t.Fatalf("expected ErrInvalidMessageID, got %v", err)
	}
	if _, err := service.Create(context.Background(), CreateRequest{MessageID: "m-1", ChannelID: " "}); !errors.Is(err, ErrInvalidChannelID) {
		t.Fatalf("expected ErrInvalidChannelID, got %v", err)
	}
}

func TestCreateLogsIDFailure(t *testing.T) {
	core, recorded := observer.New(zap.ErrorLevel)
	service, err := NewService(ServiceConfig{
		Database:   openTestDatabase(t),
		IDProvider: failingIDProvider{},
		Logger:     zap.New(core),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	if _, err := service.Create(context.Background(), CreateRequest{MessageID: "m-1", ChannelID: "chan-1"}); err == nil {
		t.Fatalf("expected id generation failure")
	}
	if recorded.FilterMessage("posts service failure").Len() != 1 {
		t.Fatalf("expected a logged service failure, got %d entries", recorded.Len())
	}
}

func TestUpdateReactionsReplacesCounts(t *testing.T) {
	service := newTestService(t, nil)
	if _, err := service.Create(context.Background(), CreateRequest{MessageID: "m-1", ChannelID: "chan-1"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := service.UpdateReactions(context.Background(), "m-1", 5, map[string]int{"🔥": 3, "👍": 2}); err != nil {
		t.Fatalf("UpdateReactions: %v", err)
	}
	updated, err := service.UpdateReactions(context.Background(), "m-1", 1, map[string]int{"👍": 1})
	if err != nil {
		t.Fatalf("UpdateReactions: %v", err)
	}
	if updated.ReactionCount != 1 {
		t.Fatalf("expected count 1, got %d", updated.ReactionCount)
	}

	loaded, err := service.Get(context.Background(), "m-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.ReactionCount != 1 || len(loaded.Reactions) != 1 || loaded.Reactions["👍"] != 1 {
		t.Fatalf("unexpected stored reactions: %d %#v", loaded.ReactionCount, loaded.Reactions)
	}
}

func TestUpdateReactionsUnknownPost(t *testing.T) {
	service := newTestService(t, nil)
	_, err := service.UpdateReactions(context.Background(), "missing", 1, map[string]int{"👍": 1})
	if !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestGetUnknownPost(t *testing.T) {
	service := newTestService(t, nil)
	if _, err := service.Get(context.Background(), "missing"); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
}

func TestNewServiceValidatesConfig(t *testing.T) {
	if _, err := NewService(ServiceConfig{IDProvider: NewUUIDProvider()}); !errors.Is(err, errMissingDatabase) {
		t.Fatalf("expected missing database error, got %v", err)
	}
	if _, err := NewService(ServiceConfig{Database: openTestDatabase(t)}); !errors.Is(err, errMissingIDProvider) {
		t.Fatalf("expected missing id provider error, got %v", err)
	}
}

func TestNewMessageIDValidation(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "trimmed", input: "  123  ", valid: true},
		{name: "empty", input: "   ", valid: false},
		{name: "too long", input: string(make([]byte, maxIdentifierLength+1)), valid: false},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			id, err := NewMessageID(testCase.input)
			if testCase.valid && (err != nil || id != "123") {
				t.Fatalf("expected valid id, got %q (%v)", id, err)
			}
			if !testCase.valid && !errors.Is(err, ErrInvalidMessageID) {
				t.Fatalf("expected ErrInvalidMessageID, got %v", err)
			}
		})
	}
}

func TestUUIDProviderIssuesVersion7(t *testing.T) {
	id, err := NewUUIDProvider().NewID()
	if err != nil {
		t.Fatalf("NewID: %v", err)
	}
	if len(id) != 36 || id[14] != '7' {
		t.Fatalf("expected a v7 uuid, got %q", id)
	}
}
