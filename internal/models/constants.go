package models

// ChannelType classifies a registered channel.
type ChannelType string

// Channel type constants.
const (
	ChannelTypeProductionHouse ChannelType = "production_house"
	ChannelTypeMusicLabel      ChannelType = "music_label"
	ChannelTypeNews            ChannelType = "news"
	ChannelTypeMovie           ChannelType = "movie"
	ChannelTypeTV              ChannelType = "tv"
	ChannelTypeRealityShow     ChannelType = "reality_show"
	ChannelTypeOTT             ChannelType = "ott"
)

// DefaultChannelType is preselected when a new channel is being registered.
const DefaultChannelType = ChannelTypeProductionHouse

// ChannelTypes lists every known channel type in display order.
var ChannelTypes = []ChannelType{
	ChannelTypeProductionHouse,
	ChannelTypeMusicLabel,
	ChannelTypeNews,
	ChannelTypeMovie,
	ChannelTypeTV,
	ChannelTypeRealityShow,
	ChannelTypeOTT,
}

// Valid reports whether t is one of ChannelTypes.
func (t ChannelType) Valid() bool {
	for _, k := range ChannelTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Language is a content language tag.
type Language string

// Language constants.
const (
	LanguageTelugu    Language = "telugu"
	LanguageTamil     Language = "tamil"
	LanguageHindi     Language = "hindi"
	LanguageEnglish   Language = "english"
	LanguageKannada   Language = "kannada"
	LanguageMalayalam Language = "malayalam"
	LanguageMarathi   Language = "marathi"
	LanguageBengali   Language = "bengali"
)

// Languages lists every known language in display order.
var Languages = []Language{
	LanguageTelugu,
	LanguageTamil,
	LanguageHindi,
	LanguageEnglish,
	LanguageKannada,
	LanguageMalayalam,
	LanguageMarathi,
	LanguageBengali,
}

// Valid reports whether l is one of Languages.
func (l Language) Valid() bool {
	for _, k := range Languages {
		if k == l {
			return true
		}
	}
	return false
}

// VideoKind distinguishes regular uploads from shorts.
type VideoKind string

// Video kind constants.
const (
	VideoKindVideo VideoKind = "video"
	VideoKindShort VideoKind = "short"
)
