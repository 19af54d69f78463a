package console

import "github.com/voyagen/channeldesk/internal/models"

// Flags are the ingestion preferences a channel_type change may touch.
type Flags struct {
	FetchVideos    bool
	FetchShorts    bool
	FullMoviesOnly bool
}

// FlagsOf extracts the ingestion flags of ch.
func FlagsOf(ch models.Channel) Flags {
	return Flags{FetchVideos: ch.FetchVideos, FetchShorts: ch.FetchShorts, FullMoviesOnly: ch.FullMoviesOnly}
}

// Apply writes f onto ch.
func (f Flags) Apply(ch *models.Channel) {
	ch.FetchVideos = f.FetchVideos
	ch.FetchShorts = f.FetchShorts
	ch.FullMoviesOnly = f.FullMoviesOnly
}

// shortsByDefault lists the types whose uploads are mostly shorts.
var shortsByDefault = map[models.ChannelType]bool{
	models.ChannelTypeProductionHouse: true,
	models.ChannelTypeMusicLabel:      true,
	models.ChannelTypeRealityShow:     true,
}

// DeriveDefaults returns the flags after switching to channel type t.
// It runs only on a type change, so the user can still override the result.
//
// FullMoviesOnly is carried over even when t is not movie: a stale true
// survives a round trip through another type. That is the established
// behavior and is kept until product decides otherwise.
func DeriveDefaults(t models.ChannelType, prior Flags) Flags {
	next := prior
	if shortsByDefault[t] {
		next.FetchShorts = true
	}
	return next
}
