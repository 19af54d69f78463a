package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/voyagen/channeldesk/internal/cache"
	"github.com/voyagen/channeldesk/internal/fetcher"
	"github.com/voyagen/channeldesk/internal/metrics"
	"github.com/voyagen/channeldesk/internal/models"
	"github.com/voyagen/channeldesk/internal/store"
)

var (
	// ErrSyncInProgress is returned when another sync holds the channel's lock.
	ErrSyncInProgress = errors.New("sync already in progress for this channel")
	// ErrInactive is returned when syncing a channel with is_active=false.
	ErrInactive = errors.New("channel is inactive")
	// ErrNoFeed is returned when the channel has never been resolved.
	ErrNoFeed = errors.New("channel has no feed url")
)

// DurationLookup reports video lengths; used for the full-movies-only filter.
type DurationLookup interface {
	Durations(ctx context.Context, videoIDs []string) (map[string]time.Duration, error)
}

// FetchFunc retrieves and parses a channel feed.
type FetchFunc func(ctx context.Context, feedURL, userAgent string, timeout time.Duration) ([]fetcher.Entry, error)

// SyncOptions configures a Syncer.
type SyncOptions struct {
	UserAgent        string
	Timeout          time.Duration
	LockTTL          time.Duration
	MovieMinDuration time.Duration
}

// Syncer ingests a channel's feed into the videos table. Only one sync per
// channel runs at a time across every process sharing the Locker.
type Syncer struct {
	store     store.Store
	locker    cache.Locker
	durations DurationLookup // nil when no YouTube API key is configured
	fetch     FetchFunc
	opts      SyncOptions
	metrics   *metrics.Metrics
	log       zerolog.Logger
	now       func() time.Time
}

// NewSyncer wires a Syncer. durations may be nil.
func NewSyncer(s store.Store, locker cache.Locker, durations DurationLookup, opts SyncOptions, m *metrics.Metrics, log zerolog.Logger) *Syncer {
	return &Syncer{
		store:     s,
		locker:    locker,
		durations: durations,
		fetch:     fetcher.FetchFeed,
		opts:      opts,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// Sync fetches the latest uploads for the channel with store id and stores
// the ones its ingestion flags select. Re-running it never duplicates videos.
func (s *Syncer) Sync(ctx context.Context, id string) (models.SyncResult, error) {
	ch, err := s.store.GetChannel(ctx, id)
	if err != nil {
		return models.SyncResult{}, err
	}
	if !ch.IsActive {
		return models.SyncResult{}, ErrInactive
	}
	if ch.FeedURL == "" {
		return models.SyncResult{}, ErrNoFeed
	}

	unlock, err := s.locker.TryLock(ctx, cache.SyncLockKey(id), s.opts.LockTTL)
	if err != nil {
		if errors.Is(err, cache.ErrLocked) {
			s.metrics.SyncTotal.WithLabelValues("conflict").Inc()
			return models.SyncResult{}, ErrSyncInProgress
		}
		return models.SyncResult{}, err
	}
	defer unlock()

	start := s.now()
	res, err := s.run(ctx, ch)
	s.metrics.SyncDuration.Observe(s.now().Sub(start).Seconds())
	if err != nil {
		s.metrics.SyncTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Str("id", id).Str("channel_id", ch.ChannelID).Msg("sync failed")
		return models.SyncResult{}, err
	}
	s.metrics.SyncTotal.WithLabelValues("ok").Inc()
	s.metrics.SyncNewItems.Add(float64(res.NewItems))
	s.log.Info().Str("id", id).Str("channel_id", ch.ChannelID).Int("new_items", res.NewItems).Msg("sync finished")
	return res, nil
}

func (s *Syncer) run(ctx context.Context, ch *models.Channel) (models.SyncResult, error) {
	entries, err := s.fetch(ctx, ch.FeedURL, s.opts.UserAgent, s.opts.Timeout)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("fetch feed: %w", err)
	}

	var lengths map[string]time.Duration
	if moviesOnly(ch) {
		lengths, err = s.lookupDurations(ctx, ch, entries)
		if err != nil {
			return models.SyncResult{}, err
		}
	}
	selected := SelectEntries(ch, entries, lengths, s.opts.MovieMinDuration)

	videos := make([]models.Video, 0, len(selected))
	for _, e := range selected {
		videos = append(videos, e.Video(ch.ID))
	}
	n, err := s.store.UpsertVideos(ctx, ch.ID, videos)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("store videos: %w", err)
	}
	at := s.now().UTC()
	if err := s.store.MarkSynced(ctx, ch.ID, at); err != nil {
		return models.SyncResult{}, fmt.Errorf("mark synced: %w", err)
	}
	return models.SyncResult{ID: ch.ID, NewItems: n, SyncedAt: &at}, nil
}

func (s *Syncer) lookupDurations(ctx context.Context, ch *models.Channel, entries []fetcher.Entry) (map[string]time.Duration, error) {
	if s.durations == nil {
		s.log.Warn().Str("channel_id", ch.ChannelID).Msg("full_movies_only is set but no duration lookup is configured; nothing will be ingested")
		return nil, nil
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Kind == models.VideoKindVideo {
			ids = append(ids, e.VideoID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	lengths, err := s.durations.Durations(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("video durations: %w", err)
	}
	return lengths, nil
}

func moviesOnly(ch *models.Channel) bool {
	return ch.ChannelType == models.ChannelTypeMovie && ch.FullMoviesOnly
}

// SelectEntries applies the channel's ingestion flags to feed entries.
// fetch_videos and fetch_shorts pick content kinds independently. For movie
// channels with full_movies_only, only videos at least movieMin long are kept
// (entries missing from lengths are dropped); the flag is ignored otherwise.
func SelectEntries(ch *models.Channel, entries []fetcher.Entry, lengths map[string]time.Duration, movieMin time.Duration) []fetcher.Entry {
	movies := moviesOnly(ch)
	out := make([]fetcher.Entry, 0, len(entries))
	for _, e := range entries {
		switch e.Kind {
		case models.VideoKindShort:
			if !ch.FetchShorts || movies {
				continue
			}
		default:
			if !ch.FetchVideos {
				continue
			}
			if movies {
				d, ok := lengths[e.VideoID]
				if !ok || d < movieMin {
					continue
				}
			}
		}
		out = append(out, e)
	}
	return out
}
