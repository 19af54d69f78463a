package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/voyagen/channeldesk/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique field (channel name or platform id) is already taken.
	ErrConflict = errors.New("conflict")
)

// ConflictError reports a unique-field collision with a message fit for end users.
// It matches ErrConflict under errors.Is.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Message }

// Is makes errors.Is(err, ErrConflict) true.
func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// Store defines persistence for channels, their ingested videos and the
// generic settings documents.
type Store interface {
	// ListChannels returns channels matching filter, ordered by name.
	ListChannels(ctx context.Context, filter ChannelFilter) ([]models.Channel, error)
	// GetChannel returns a single channel by its store id.
	GetChannel(ctx context.Context, id string) (*models.Channel, error)
	// CreateChannel inserts ch. ch.ID must already be assigned.
	CreateChannel(ctx context.Context, ch *models.Channel) (*models.Channel, error)
	// UpdateChannel replaces every mutable field of the channel with id.
	UpdateChannel(ctx context.Context, id string, ch *models.Channel) (*models.Channel, error)
	// DeleteChannel removes the channel and cascades to its videos.
	DeleteChannel(ctx context.Context, id string) error
	// MarkSynced stamps last_synced_at.
	MarkSynced(ctx context.Context, id string, at time.Time) error

	// UpsertVideos inserts videos not seen before and returns how many were new.
	UpsertVideos(ctx context.Context, channelRef string, videos []models.Video) (int, error)
	// VideoCounts returns the number of ingested videos per platform channel id.
	VideoCounts(ctx context.Context) ([]models.VideoCount, error)

	// GetSetting returns the JSON document stored under key.
	GetSetting(ctx context.Context, key string) (json.RawMessage, error)
	// PutSetting replaces the JSON document stored under key.
	PutSetting(ctx context.Context, key string, value json.RawMessage) error
}

// ChannelFilter holds the server-side list filters. Nil means "any".
type ChannelFilter struct {
	Language    *models.Language
	ChannelType *models.ChannelType
}
