package console

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/voyagen/channeldesk/internal/apiclient"
	"github.com/voyagen/channeldesk/internal/models"
	"golang.org/x/sync/errgroup"
)

// RecordStore caches the channel list for the current filters.
//
// Every Load is tagged with a sequence number; a response is applied only if
// no newer Load was issued meanwhile, so the cache always reflects the most
// recently requested view regardless of arrival order.
type RecordStore struct {
	api Lister
	log zerolog.Logger

	mu       sync.Mutex
	issued   uint64
	filter   Filter
	channels []models.Channel
}

// NewRecordStore creates an empty store.
func NewRecordStore(api Lister, log zerolog.Logger) *RecordStore {
	return &RecordStore{api: api, log: log}
}

// Load re-fetches the list for the current language and type filters and
// joins in video counts. A stale response is dropped without error.
func (s *RecordStore) Load(ctx context.Context) error {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	f := apiclient.ListFilter{Language: s.filter.Language, ChannelType: s.filter.ChannelType}
	s.mu.Unlock()

	var (
		list   []models.Channel
		counts []models.VideoCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.api.ListChannels(gctx, f)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.api.VideoCounts(gctx)
		if err != nil {
			// Counts are decoration; the list is still usable without them.
			s.log.Warn().Err(err).Msg("video counts unavailable")
			counts = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	joined := joinCounts(list, counts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issued {
		s.log.Debug().Uint64("seq", seq).Uint64("latest", s.issued).Msg("discarding stale channel list")
		return nil
	}
	s.channels = joined
	return nil
}

// SetFilter changes the server-side filters and reloads.
func (s *RecordStore) SetFilter(ctx context.Context, lang models.Language, typ models.ChannelType) error {
	s.mu.Lock()
	s.filter.Language = lang
	s.filter.ChannelType = typ
	s.mu.Unlock()
	return s.Load(ctx)
}

// SetSearch changes the client-side search text. No request is made.
func (s *RecordStore) SetSearch(text string) {
	s.mu.Lock()
	s.filter.Search = text
	s.mu.Unlock()
}

// Filter returns the active filters.
func (s *RecordStore) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Visible returns the cached list narrowed by the search text. Language and
// type were already applied by the server when the list was loaded.
func (s *RecordStore) Visible() []models.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Project(s.channels, Filter{Search: s.filter.Search})
}

// Get returns the cached channel with store id.
func (s *RecordStore) Get(id string) (models.Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.channels {
		if ch.ID == id {
			return ch, true
		}
	}
	return models.Channel{}, false
}

// Remove drops a channel from the cache after a confirmed delete.
func (s *RecordStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.channels[:0:0]
	for _, ch := range s.channels {
		if ch.ID != id {
			out = append(out, ch)
		}
	}
	s.channels = out
}

func joinCounts(list []models.Channel, counts []models.VideoCount) []models.Channel {
	byID := make(map[string]int64, len(counts))
	for _, c := range counts {
		byID[c.ChannelID] = c.VideoCount
	}
	out := make([]models.Channel, len(list))
	for i, ch := range list {
		ch.VideoCount = 0
		if ch.ChannelID != "" {
			ch.VideoCount = byID[ch.ChannelID]
		}
		out[i] = ch
	}
	return out
}
