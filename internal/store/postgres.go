package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/voyagen/channeldesk/internal/models"
)

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

const channelColumns = `id, channel_name, COALESCE(channel_id, ''), COALESCE(feed_url, ''), channel_type,
	languages, is_active, fetch_videos, fetch_shorts, full_movies_only,
	last_synced_at, created_at, updated_at`

func scanChannel(row pgx.Row) (*models.Channel, error) {
	var (
		ch        models.Channel
		chType    string
		languages []string
	)
	err := row.Scan(&ch.ID, &ch.ChannelName, &ch.ChannelID, &ch.FeedURL, &chType,
		&languages, &ch.IsActive, &ch.FetchVideos, &ch.FetchShorts, &ch.FullMoviesOnly,
		&ch.LastSyncedAt, &ch.CreatedAt, &ch.UpdatedAt)
	if err != nil {
		return nil, err
	}
	ch.ChannelType = models.ChannelType(chType)
	ch.Languages = make([]models.Language, 0, len(languages))
	for _, l := range languages {
		ch.Languages = append(ch.Languages, models.Language(l))
	}
	return &ch, nil
}

// validID reports whether id can name a row; channels.id is a UUID column
// and Postgres rejects other text with 22P02.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func languageStrings(ls []models.Language) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, string(l))
	}
	return out
}

// ListChannels returns channels matching filter, ordered by name.
func (p *Postgres) ListChannels(ctx context.Context, filter ChannelFilter) ([]models.Channel, error) {
	q, args := listQuery(filter)
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListChannels: %w", err)
	}
	defer rows.Close()

	var out []models.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("ListChannels scan: %w", err)
		}
		out = append(out, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListChannels: %w", err)
	}
	return out, nil
}

// listQuery builds the channel list SELECT. The language test is a text[]
// containment so it can use the GIN index on languages.
func listQuery(filter ChannelFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if filter.Language != nil {
		args = append(args, string(*filter.Language))
		where = append(where, fmt.Sprintf("languages @> ARRAY[$%d]::text[]", len(args)))
	}
	if filter.ChannelType != nil {
		args = append(args, string(*filter.ChannelType))
		where = append(where, fmt.Sprintf("channel_type = $%d", len(args)))
	}
	q := `SELECT ` + channelColumns + ` FROM channels`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	return q + ` ORDER BY lower(channel_name), id`, args
}

// GetChannel returns a single channel by id.
func (p *Postgres) GetChannel(ctx context.Context, id string) (*models.Channel, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	ch, err := scanChannel(p.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("GetChannel: %w", err)
	}
	return ch, nil
}

// CreateChannel inserts ch and returns the stored row.
func (p *Postgres) CreateChannel(ctx context.Context, ch *models.Channel) (*models.Channel, error) {
	row := p.pool.QueryRow(ctx,
		`INSERT INTO channels (id, channel_name, channel_id, feed_url, channel_type, languages,
		   is_active, fetch_videos, fetch_shorts, full_movies_only)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10)
		 RETURNING `+channelColumns,
		ch.ID, ch.ChannelName, ch.ChannelID, ch.FeedURL, string(ch.ChannelType), languageStrings(ch.Languages),
		ch.IsActive, ch.FetchVideos, ch.FetchShorts, ch.FullMoviesOnly,
	)
	out, err := scanChannel(row)
	if err != nil {
		return nil, fmt.Errorf("CreateChannel: %w", conflictErr(err, ch))
	}
	return out, nil
}

// UpdateChannel replaces the mutable fields of the channel with id.
func (p *Postgres) UpdateChannel(ctx context.Context, id string, ch *models.Channel) (*models.Channel, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	row := p.pool.QueryRow(ctx,
		`UPDATE channels SET channel_name = $2, channel_id = NULLIF($3, ''), feed_url = NULLIF($4, ''),
		   channel_type = $5, languages = $6, is_active = $7, fetch_videos = $8, fetch_shorts = $9,
		   full_movies_only = $10, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+channelColumns,
		id, ch.ChannelName, ch.ChannelID, ch.FeedURL, string(ch.ChannelType), languageStrings(ch.Languages),
		ch.IsActive, ch.FetchVideos, ch.FetchShorts, ch.FullMoviesOnly,
	)
	out, err := scanChannel(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("UpdateChannel: %w", conflictErr(err, ch))
	}
	return out, nil
}

// DeleteChannel removes the channel; videos go with it (ON DELETE CASCADE).
func (p *Postgres) DeleteChannel(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := p.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("DeleteChannel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSynced stamps last_synced_at for the channel.
func (p *Postgres) MarkSynced(ctx context.Context, id string, at time.Time) error {
	if !validID(id) {
		return ErrNotFound
	}
	tag, err := p.pool.Exec(ctx, `UPDATE channels SET last_synced_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("MarkSynced: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertVideos inserts unseen videos in one batch; already known video ids are left untouched.
func (p *Postgres) UpsertVideos(ctx context.Context, channelRef string, videos []models.Video) (int, error) {
	if len(videos) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, v := range videos {
		batch.Queue(
			`INSERT INTO videos (channel_ref, video_id, title, url, kind, published_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (video_id) DO NOTHING`,
			channelRef, v.VideoID, v.Title, v.URL, string(v.Kind), v.PublishedAt,
		)
	}
	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range videos {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("UpsertVideos: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

// VideoCounts returns per-platform-channel video totals.
func (p *Postgres) VideoCounts(ctx context.Context) ([]models.VideoCount, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT c.channel_id, COUNT(v.id)
		 FROM channels c JOIN videos v ON v.channel_ref = c.id
		 WHERE c.channel_id IS NOT NULL
		 GROUP BY c.channel_id
		 ORDER BY c.channel_id`)
	if err != nil {
		return nil, fmt.Errorf("VideoCounts: %w", err)
	}
	defer rows.Close()

	var out []models.VideoCount
	for rows.Next() {
		var vc models.VideoCount
		if err := rows.Scan(&vc.ChannelID, &vc.VideoCount); err != nil {
			return nil, fmt.Errorf("VideoCounts scan: %w", err)
		}
		out = append(out, vc)
	}
	return out, rows.Err()
}

// GetSetting returns the settings document stored under key.
func (p *Postgres) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("GetSetting: %w", err)
	}
	return json.RawMessage(raw), nil
}

// PutSetting upserts the settings document stored under key.
func (p *Postgres) PutSetting(ctx context.Context, key string, value json.RawMessage) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, []byte(value),
	)
	if err != nil {
		return fmt.Errorf("PutSetting: %w", err)
	}
	return nil
}

// conflictErr maps unique violations on channels to ErrConflict with a readable message.
func conflictErr(err error, ch *models.Channel) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "channels_channel_name_key":
		return &ConflictError{Message: fmt.Sprintf("a channel named %q already exists", ch.ChannelName)}
	case "channels_channel_id_key":
		return &ConflictError{Message: fmt.Sprintf("channel %s is already registered", ch.ChannelID)}
	default:
		return &ConflictError{Message: pgErr.Detail}
	}
}
