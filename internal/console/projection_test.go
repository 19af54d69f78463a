package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voyagen/channeldesk/internal/models"
)

func names(list []models.Channel) []string {
	out := make([]string, 0, len(list))
	for _, ch := range list {
		out = append(out, ch.ChannelName)
	}
	return out
}

func TestProjectSearchIsCaseInsensitive(t *testing.T) {
	list := []models.Channel{{ChannelName: "Alpha"}, {ChannelName: "beta"}}
	assert.Equal(t, []string{"beta"}, names(Project(list, Filter{Search: "ET"})))
	assert.Equal(t, []string{"Alpha", "beta"}, names(Project(list, Filter{})))
	assert.Empty(t, Project(list, Filter{Search: "gamma"}))
}

func TestProjectSearchMatchesNameOnly(t *testing.T) {
	list := []models.Channel{{ChannelName: "Aditya Music", ChannelID: "UCbeta"}}
	assert.Empty(t, Project(list, Filter{Search: "beta"}))
}

func TestProjectLanguageAndType(t *testing.T) {
	list := []models.Channel{
		{ChannelName: "A", ChannelType: models.ChannelTypeNews, Languages: []models.Language{models.LanguageHindi}},
		{ChannelName: "B", ChannelType: models.ChannelTypeMovie, Languages: []models.Language{models.LanguageHindi, models.LanguageTamil}},
		{ChannelName: "C", ChannelType: models.ChannelTypeMovie, Languages: []models.Language{models.LanguageTelugu}},
	}
	assert.Equal(t, []string{"A", "B"}, names(Project(list, Filter{Language: models.LanguageHindi})))
	assert.Equal(t, []string{"B", "C"}, names(Project(list, Filter{ChannelType: models.ChannelTypeMovie})))
	assert.Equal(t, []string{"B"}, names(Project(list, Filter{Language: models.LanguageHindi, ChannelType: models.ChannelTypeMovie})))
}
