package console

import (
	"strings"

	"github.com/voyagen/channeldesk/internal/models"
)

// Filter is the active list view. Language and ChannelType are sent to the
// server; Search only narrows the cached list.
type Filter struct {
	Language    models.Language
	ChannelType models.ChannelType
	Search      string
}

// Project returns the channels of list that match f, in list order.
// Search is a case-insensitive substring match on channel_name only.
func Project(list []models.Channel, f Filter) []models.Channel {
	needle := strings.ToLower(f.Search)
	out := make([]models.Channel, 0, len(list))
	for _, ch := range list {
		if f.Language != "" && !ch.HasLanguage(f.Language) {
			continue
		}
		if f.ChannelType != "" && ch.ChannelType != f.ChannelType {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(ch.ChannelName), needle) {
			continue
		}
		out = append(out, ch)
	}
	return out
}
