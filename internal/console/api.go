package console

import (
	"context"

	"github.com/voyagen/channeldesk/internal/apiclient"
	"github.com/voyagen/channeldesk/internal/models"
)

// Lister backs the RecordStore.
type Lister interface {
	ListChannels(ctx context.Context, f apiclient.ListFilter) ([]models.Channel, error)
	VideoCounts(ctx context.Context) ([]models.VideoCount, error)
}

// Resolver turns a channel URL into its identity.
type Resolver interface {
	ExtractDetails(ctx context.Context, rawURL string) (models.Identity, error)
}

// Writer persists channels.
type Writer interface {
	CreateChannel(ctx context.Context, ch models.Channel) (*models.Channel, error)
	UpdateChannel(ctx context.Context, id string, ch models.Channel) (*models.Channel, error)
}

// Deleter removes channels.
type Deleter interface {
	DeleteChannel(ctx context.Context, id string) error
}

// Syncer requests ingestion of a channel's feed.
type Syncer interface {
	TriggerSync(ctx context.Context, id string) (models.SyncResult, error)
}

// API is the full server surface the console needs.
type API interface {
	Lister
	Resolver
	Writer
	Deleter
	Syncer
}

var _ API = (*apiclient.Client)(nil)
