package console

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/voyagen/channeldesk/internal/apiclient"
	"github.com/voyagen/channeldesk/internal/models"
)

// ErrNoPendingDeletion is returned by Confirm without a prior Request.
var ErrNoPendingDeletion = errors.New("no deletion is awaiting confirmation")

// DeleteError reports a delete the server refused or never received.
// The channel is still registered and still listed.
type DeleteError struct {
	Channel models.Channel
	Err     error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("could not delete %q: %s", e.Channel.ChannelName, apiclient.Message(e.Err))
}

func (e *DeleteError) Unwrap() error { return e.Err }

// DeletionGuard requires two distinct steps before a channel is deleted:
// Request names the channel, Confirm issues the call.
type DeletionGuard struct {
	api     Deleter
	records *RecordStore
	log     zerolog.Logger

	mu      sync.Mutex
	pending *models.Channel
}

// NewDeletionGuard creates a guard; records may be nil.
func NewDeletionGuard(api Deleter, records *RecordStore, log zerolog.Logger) *DeletionGuard {
	return &DeletionGuard{api: api, records: records, log: log}
}

// Request arms a deletion of ch and returns the confirmation prompt.
// A later Request replaces an earlier one.
func (g *DeletionGuard) Request(ch models.Channel) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = &ch
	return fmt.Sprintf("Delete channel %q? Its synced videos are removed too.", ch.ChannelName)
}

// Pending returns the channel awaiting confirmation.
func (g *DeletionGuard) Pending() (models.Channel, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return models.Channel{}, false
	}
	return *g.pending, true
}

// Cancel disarms the pending deletion. Nothing is sent.
func (g *DeletionGuard) Cancel() {
	g.mu.Lock()
	g.pending = nil
	g.mu.Unlock()
}

// Confirm deletes the pending channel. On failure the row stays in the
// record store and a *DeleteError is returned; on success the row is removed
// and the list reloaded.
func (g *DeletionGuard) Confirm(ctx context.Context) error {
	g.mu.Lock()
	pending := g.pending
	g.pending = nil
	g.mu.Unlock()
	if pending == nil {
		return ErrNoPendingDeletion
	}

	if err := g.api.DeleteChannel(ctx, pending.ID); err != nil {
		g.log.Warn().Err(err).Str("id", pending.ID).Msg("delete failed")
		return &DeleteError{Channel: *pending, Err: err}
	}
	g.log.Info().Str("id", pending.ID).Str("channel_name", pending.ChannelName).Msg("channel deleted")

	if g.records != nil {
		g.records.Remove(pending.ID)
		if err := g.records.Load(ctx); err != nil {
			g.log.Warn().Err(err).Msg("reload after delete")
		}
	}
	return nil
}
