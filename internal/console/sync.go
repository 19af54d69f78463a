package console

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/voyagen/channeldesk/internal/models"
)

// ErrSyncInFlight is returned when a sync for the same channel is still outstanding.
var ErrSyncInFlight = errors.New("a sync is already running for this channel")

// SyncTrigger issues sync requests with at most one outstanding call per
// channel id. Different channels sync concurrently.
type SyncTrigger struct {
	api Syncer
	log zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewSyncTrigger creates a trigger over api.
func NewSyncTrigger(api Syncer, log zerolog.Logger) *SyncTrigger {
	return &SyncTrigger{api: api, log: log, inFlight: make(map[string]struct{})}
}

// Trigger requests a sync of channel id. It returns ErrSyncInFlight without
// a network call if one is already outstanding. A failed sync never affects
// the stored channel and can be retried at once.
func (t *SyncTrigger) Trigger(ctx context.Context, id string) (models.SyncResult, error) {
	t.mu.Lock()
	if _, busy := t.inFlight[id]; busy {
		t.mu.Unlock()
		return models.SyncResult{}, ErrSyncInFlight
	}
	t.inFlight[id] = struct{}{}
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		delete(t.inFlight, id)
		t.mu.Unlock()
	}()

	res, err := t.api.TriggerSync(ctx, id)
	if err != nil {
		t.log.Warn().Err(err).Str("id", id).Msg("sync failed")
		return models.SyncResult{}, err
	}
	t.log.Info().Str("id", id).Int("new_items", res.NewItems).Msg("sync accepted")
	return res, nil
}

// InFlight reports whether a sync for id is outstanding; the row's sync
// action is disabled while it is.
func (t *SyncTrigger) InFlight(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.inFlight[id]
	return ok
}

// Running lists the channel ids with an outstanding sync, sorted.
func (t *SyncTrigger) Running() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.inFlight))
	for id := range t.inFlight {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
