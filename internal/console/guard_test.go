package console

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyagen/channeldesk/internal/apiclient"
	"github.com/voyagen/channeldesk/internal/models"
)

func guardFixture(t *testing.T) (*fakeAPI, *RecordStore, *DeletionGuard) {
	t.Helper()
	api := &fakeAPI{channels: []models.Channel{{ID: "c1", ChannelName: "Alpha"}, {ID: "c2", ChannelName: "beta"}}}
	records := NewRecordStore(api, zerolog.Nop())
	require.NoError(t, records.Load(context.Background()))
	return api, records, NewDeletionGuard(api, records, zerolog.Nop())
}

func TestDeleteNeedsTwoSteps(t *testing.T) {
	api, records, g := guardFixture(t)
	ch, _ := records.Get("c1")

	prompt := g.Request(ch)
	assert.Contains(t, prompt, `"Alpha"`)
	assert.Empty(t, api.deletes, "requesting alone never deletes")

	api.channels = api.channels[1:]
	require.NoError(t, g.Confirm(context.Background()))
	assert.Equal(t, []string{"c1"}, api.deletes)
	assert.Equal(t, []string{"beta"}, names(records.Visible()))

	_, pending := g.Pending()
	assert.False(t, pending)
}

func TestDeleteCancel(t *testing.T) {
	api, records, g := guardFixture(t)
	ch, _ := records.Get("c1")

	g.Request(ch)
	g.Cancel()
	require.ErrorIs(t, g.Confirm(context.Background()), ErrNoPendingDeletion)
	assert.Empty(t, api.deletes)
	assert.Len(t, records.Visible(), 2)
}

func TestConfirmWithoutRequest(t *testing.T) {
	api, _, g := guardFixture(t)
	require.ErrorIs(t, g.Confirm(context.Background()), ErrNoPendingDeletion)
	assert.Empty(t, api.deletes)
}

func TestDeleteFailureKeepsRow(t *testing.T) {
	api, records, g := guardFixture(t)
	api.deleteErr = &apiclient.APIError{Status: 500, Detail: "database is down"}
	ch, _ := records.Get("c2")

	g.Request(ch)
	err := g.Confirm(context.Background())

	var delErr *DeleteError
	require.True(t, errors.As(err, &delErr))
	assert.Equal(t, "c2", delErr.Channel.ID)
	assert.Contains(t, err.Error(), "database is down")
	assert.Equal(t, 500, apiclient.StatusOf(err))
	assert.Equal(t, []string{"Alpha", "beta"}, names(records.Visible()))
}
