package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/voyagen/channeldesk/internal/models"
)

// Memory is an in-process Store with the same uniqueness rules as the
// Postgres schema. It backs handler and service tests.
type Memory struct {
	mu       sync.Mutex
	channels map[string]models.Channel
	videos   map[string]models.Video // keyed by platform video id
	settings map[string]json.RawMessage
	nextVid  int64
	now      func() time.Time
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		channels: make(map[string]models.Channel),
		videos:   make(map[string]models.Video),
		settings: make(map[string]json.RawMessage),
		now:      time.Now,
	}
}

func (m *Memory) ListChannels(_ context.Context, filter ChannelFilter) ([]models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Channel
	for _, ch := range m.channels {
		if filter.Language != nil && !ch.HasLanguage(*filter.Language) {
			continue
		}
		if filter.ChannelType != nil && ch.ChannelType != *filter.ChannelType {
			continue
		}
		out = append(out, cloneChannel(ch))
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].ChannelName), strings.ToLower(out[j].ChannelName)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) GetChannel(_ context.Context, id string) (*models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneChannel(ch)
	return &out, nil
}

func (m *Memory) CreateChannel(_ context.Context, ch *models.Channel) (*models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkUnique("", ch); err != nil {
		return nil, err
	}
	now := m.now()
	stored := cloneChannel(*ch)
	stored.CreatedAt, stored.UpdatedAt = &now, &now
	stored.VideoCount = 0
	m.channels[stored.ID] = stored
	out := cloneChannel(stored)
	return &out, nil
}

func (m *Memory) UpdateChannel(_ context.Context, id string, ch *models.Channel) (*models.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.channels[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := m.checkUnique(id, ch); err != nil {
		return nil, err
	}
	now := m.now()
	stored := cloneChannel(*ch)
	stored.ID = id
	stored.CreatedAt = prev.CreatedAt
	stored.LastSyncedAt = prev.LastSyncedAt
	stored.UpdatedAt = &now
	stored.VideoCount = 0
	m.channels[id] = stored
	out := cloneChannel(stored)
	return &out, nil
}

func (m *Memory) DeleteChannel(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.channels[id]; !ok {
		return ErrNotFound
	}
	delete(m.channels, id)
	for k, v := range m.videos {
		if v.ChannelRef == id {
			delete(m.videos, k)
		}
	}
	return nil
}

func (m *Memory) MarkSynced(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[id]
	if !ok {
		return ErrNotFound
	}
	ch.LastSyncedAt = &at
	m.channels[id] = ch
	return nil
}

func (m *Memory) UpsertVideos(_ context.Context, channelRef string, videos []models.Video) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.channels[channelRef]; !ok {
		return 0, fmt.Errorf("UpsertVideos: %w", ErrNotFound)
	}
	inserted := 0
	for _, v := range videos {
		if _, ok := m.videos[v.VideoID]; ok {
			continue
		}
		m.nextVid++
		v.ID = m.nextVid
		v.ChannelRef = channelRef
		m.videos[v.VideoID] = v
		inserted++
	}
	return inserted, nil
}

func (m *Memory) VideoCounts(_ context.Context) ([]models.VideoCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int64)
	for _, v := range m.videos {
		ch, ok := m.channels[v.ChannelRef]
		if !ok || ch.ChannelID == "" {
			continue
		}
		counts[ch.ChannelID]++
	}
	out := make([]models.VideoCount, 0, len(counts))
	for id, n := range counts {
		out = append(out, models.VideoCount{ChannelID: id, VideoCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}

func (m *Memory) GetSetting(_ context.Context, key string) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.settings[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append(json.RawMessage(nil), raw...), nil
}

func (m *Memory) PutSetting(_ context.Context, key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = append(json.RawMessage(nil), value...)
	return nil
}

// checkUnique enforces the channel_name and channel_id unique constraints, ignoring selfID.
func (m *Memory) checkUnique(selfID string, ch *models.Channel) error {
	for id, other := range m.channels {
		if id == selfID {
			continue
		}
		if other.ChannelName == ch.ChannelName {
			return &ConflictError{Message: fmt.Sprintf("a channel named %q already exists", ch.ChannelName)}
		}
		if ch.ChannelID != "" && other.ChannelID == ch.ChannelID {
			return &ConflictError{Message: fmt.Sprintf("channel %s is already registered", ch.ChannelID)}
		}
	}
	return nil
}

func cloneChannel(ch models.Channel) models.Channel {
	ch.Languages = append([]models.Language(nil), ch.Languages...)
	return ch
}
