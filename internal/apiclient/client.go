// Package apiclient is a typed client for the channeldesk REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/voyagen/channeldesk/internal/models"
)

const defaultHTTPTimeout = 30 * time.Second

// Messages shown when the server gives no detail or cannot be reached.
const (
	GenericErrorMessage      = "something went wrong, please try again"
	ConnectivityErrorMessage = "could not reach the server, check your connection and try again"
)

// ErrUnreachable wraps transport failures.
var ErrUnreachable = errors.New(ConnectivityErrorMessage)

// APIError is a non-2xx response. Detail is the server's human-readable
// message, or GenericErrorMessage when the body carried none.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string { return e.Detail }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Message returns the text a user should see for err.
func Message(err error) string {
	var apiErr *APIError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return apiErr.Detail
	case errors.Is(err, ErrUnreachable):
		return ConnectivityErrorMessage
	default:
		return GenericErrorMessage
	}
}

// ListFilter narrows GET /channels. Zero values are omitted.
type ListFilter struct {
	Language    models.Language
	ChannelType models.ChannelType
}

// Client talks to the channeldesk API rooted at baseURL (e.g. http://host:8080/api).
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates a client. A zero timeout uses 30s.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// ListChannels fetches the registered channels matching f.
func (c *Client) ListChannels(ctx context.Context, f ListFilter) ([]models.Channel, error) {
	q := url.Values{}
	if f.Language != "" {
		q.Set("language", string(f.Language))
	}
	if f.ChannelType != "" {
		q.Set("channel_type", string(f.ChannelType))
	}
	path := "/channels"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []models.Channel
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetChannel fetches one channel by store id.
func (c *Client) GetChannel(ctx context.Context, id string) (*models.Channel, error) {
	var out models.Channel
	if err := c.do(ctx, http.MethodGet, "/channels/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExtractDetails resolves a channel URL into its identity. Nothing is persisted.
func (c *Client) ExtractDetails(ctx context.Context, rawURL string) (models.Identity, error) {
	var out models.Identity
	err := c.do(ctx, http.MethodPost, "/channels/extract-details", map[string]string{"url": rawURL}, &out)
	return out, err
}

// CreateChannel persists ch (without id) and returns the stored record.
func (c *Client) CreateChannel(ctx context.Context, ch models.Channel) (*models.Channel, error) {
	ch.ID = ""
	var out models.Channel
	if err := c.do(ctx, http.MethodPost, "/channels", ch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateChannel replaces the channel with store id.
func (c *Client) UpdateChannel(ctx context.Context, id string, ch models.Channel) (*models.Channel, error) {
	var out models.Channel
	if err := c.do(ctx, http.MethodPut, "/channels/"+url.PathEscape(id), ch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteChannel removes the channel with store id.
func (c *Client) DeleteChannel(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/channels/"+url.PathEscape(id), nil, nil)
}

// TriggerSync asks the server to ingest the channel's feed.
func (c *Client) TriggerSync(ctx context.Context, id string) (models.SyncResult, error) {
	var out models.SyncResult
	err := c.do(ctx, http.MethodPost, "/sync/"+url.PathEscape(id), nil, &out)
	return out, err
}

// VideoCounts fetches per-channel video totals keyed by platform channel_id.
func (c *Client) VideoCounts(ctx context.Context) ([]models.VideoCount, error) {
	var out []models.VideoCount
	if err := c.do(ctx, http.MethodGet, "/videos/by-channel", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetSetting reads a raw JSON settings document.
func (c *Client) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/settings/"+url.PathEscape(key), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PutSetting stores a raw JSON settings document.
func (c *Client) PutSetting(ctx context.Context, key string, value json.RawMessage) error {
	return c.do(ctx, http.MethodPut, "/settings/"+url.PathEscape(key), value, nil)
}

// errorBody is the server's error envelope.
type errorBody struct {
	Detail string `json:"detail"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(respBody, &eb)
		detail := eb.Detail
		if detail == "" {
			detail = GenericErrorMessage
		}
		c.log.Debug().Int("status", resp.StatusCode).Str("path", path).Str("detail", eb.Detail).Msg("api error")
		return &APIError{Status: resp.StatusCode, Detail: detail}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
