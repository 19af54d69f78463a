package console

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/voyagen/channeldesk/internal/models"
)

// Console wires the workflow pieces over one API.
type Console struct {
	Records *RecordStore
	Syncs   *SyncTrigger
	Guard   *DeletionGuard
	Flow    *Workflow

	log zerolog.Logger
}

// New builds a Console.
func New(api API, log zerolog.Logger) *Console {
	records := NewRecordStore(api, log)
	syncs := NewSyncTrigger(api, log)
	return &Console{
		Records: records,
		Syncs:   syncs,
		Guard:   NewDeletionGuard(api, records, log),
		Flow:    NewWorkflow(api, api, syncs, records, log),
		log:     log,
	}
}

// Sync is the list view's manual sync action. It shares the single-flight
// set with automatic syncs and reloads the list so video counts move.
func (c *Console) Sync(ctx context.Context, id string) (models.SyncResult, error) {
	res, err := c.Syncs.Trigger(ctx, id)
	if err != nil {
		return res, err
	}
	if err := c.Records.Load(ctx); err != nil {
		c.log.Warn().Err(err).Str("id", id).Msg("reload channel list after sync")
	}
	return res, nil
}
