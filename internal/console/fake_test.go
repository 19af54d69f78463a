package console

import (
	"context"
	"errors"
	"sync"

	"github.com/voyagen/channeldesk/internal/apiclient"
	"github.com/voyagen/channeldesk/internal/models"
)

// fakeAPI records calls and can hold sync calls open until released.
type fakeAPI struct {
	mu sync.Mutex

	identity   models.Identity
	resolveErr error
	saveErr    error
	deleteErr  error
	countsErr  error
	listErr    error
	channels   []models.Channel
	counts     []models.VideoCount
	nextID     string

	resolves []string
	creates  []models.Channel
	updates  []models.Channel
	deletes  []string
	syncs    []string
	lists    []apiclient.ListFilter

	syncGate chan struct{} // when non-nil, TriggerSync blocks until closed
	syncErr  error
}

func (f *fakeAPI) ExtractDetails(_ context.Context, raw string) (models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resolves = append(f.resolves, raw)
	if f.resolveErr != nil {
		return models.Identity{}, f.resolveErr
	}
	return f.identity, nil
}

func (f *fakeAPI) CreateChannel(_ context.Context, ch models.Channel) (*models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, ch)
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	ch.ID = f.nextID
	return &ch, nil
}

func (f *fakeAPI) UpdateChannel(_ context.Context, id string, ch models.Channel) (*models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, ch)
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	ch.ID = id
	return &ch, nil
}

func (f *fakeAPI) DeleteChannel(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return f.deleteErr
}

func (f *fakeAPI) TriggerSync(ctx context.Context, id string) (models.SyncResult, error) {
	f.mu.Lock()
	f.syncs = append(f.syncs, id)
	gate, err := f.syncGate, f.syncErr
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.SyncResult{}, ctx.Err()
		}
	}
	if err != nil {
		return models.SyncResult{}, err
	}
	return models.SyncResult{ID: id, NewItems: 2}, nil
}

func (f *fakeAPI) ListChannels(_ context.Context, filter apiclient.ListFilter) ([]models.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, filter)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Channel(nil), f.channels...), nil
}

func (f *fakeAPI) VideoCounts(context.Context) ([]models.VideoCount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts, f.countsErr
}

func (f *fakeAPI) syncCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.syncs...)
}

var errBoom = errors.New("boom")
