package console

import (
	"strings"

	"github.com/voyagen/channeldesk/internal/models"
)

// State is one step of the add/edit channel flow. Each variant carries only
// the data that is meaningful in that step.
type State interface{ isState() }

// Idle: no dialog open.
type Idle struct{}

// URLEntry is the first step of Add: the user types a channel URL.
// Err is shown under the field until the URL is edited again.
type URLEntry struct {
	URL string
	Err string
}

// Resolving waits for the resolver.
type Resolving struct {
	URL string
}

// Draft is the in-progress detail form. Channel.ID is empty on the Add path.
type Draft struct {
	Channel   models.Channel
	URL       string // resolved URL on Add, last refresh URL on Edit
	Refreshed bool   // the identity was re-resolved during this edit
}

// Editing reports whether the draft edits an existing channel.
func (d Draft) Editing() bool { return d.Channel.ID != "" }

// FieldErrors are client-side validation failures keyed by field name.
type FieldErrors map[string]string

// DetailEntry is the detail form. Err holds the last server message.
type DetailEntry struct {
	Draft
	Err        string
	Fields     FieldErrors
	RefreshURL string
	RefreshErr string
}

// Refreshing re-resolves an edited channel's identity.
type Refreshing struct {
	Draft
	RefreshURL string
}

// Saving waits for create or update.
type Saving struct {
	Draft
}

// Syncing waits for the automatic sync that follows a create or refresh.
type Syncing struct {
	Channel models.Channel
	Created bool
}

// SyncOutcome is the result of an automatic sync.
type SyncOutcome struct {
	NewItems int
	Err      string
}

// Saved: the channel is persisted. Sync is nil when no automatic sync ran.
type Saved struct {
	Channel models.Channel
	Created bool
	Sync    *SyncOutcome
}

func (Idle) isState()        {}
func (URLEntry) isState()    {}
func (Resolving) isState()   {}
func (DetailEntry) isState() {}
func (Refreshing) isState()  {}
func (Saving) isState()      {}
func (Syncing) isState()     {}
func (Saved) isState()       {}

// Event is user input or a collaborator response.
type Event interface{ isEvent() }

type (
	// OpenAdd starts the Add flow.
	OpenAdd struct{}
	// OpenEdit starts editing an existing channel.
	OpenEdit struct{ Channel models.Channel }
	// Close abandons the flow from any state.
	Close struct{}

	URLChanged struct{ URL string }
	SubmitURL  struct{}

	// Resolved and ResolveFailed answer both Resolving and Refreshing.
	Resolved      struct{ Identity models.Identity }
	ResolveFailed struct{ Message string }

	NameChanged      struct{ Name string }
	TypeChanged      struct{ Type models.ChannelType }
	LanguagesChanged struct{ Languages []models.Language }
	FlagsChanged     struct {
		IsActive bool
		Flags
	}

	RefreshURLChanged struct{ URL string }
	SubmitRefresh     struct{}

	SubmitDetails struct{}
	SaveSucceeded struct{ Channel models.Channel }
	SaveFailed    struct{ Message string }

	SyncFinished struct {
		Result models.SyncResult
		Err    string
	}
)

func (OpenAdd) isEvent()           {}
func (OpenEdit) isEvent()          {}
func (Close) isEvent()             {}
func (URLChanged) isEvent()        {}
func (SubmitURL) isEvent()         {}
func (Resolved) isEvent()          {}
func (ResolveFailed) isEvent()     {}
func (NameChanged) isEvent()       {}
func (TypeChanged) isEvent()       {}
func (LanguagesChanged) isEvent()  {}
func (FlagsChanged) isEvent()      {}
func (RefreshURLChanged) isEvent() {}
func (SubmitRefresh) isEvent()     {}
func (SubmitDetails) isEvent()     {}
func (SaveSucceeded) isEvent()     {}
func (SaveFailed) isEvent()        {}
func (SyncFinished) isEvent()      {}

// Command is a side effect requested by Reduce.
type Command interface{ isCommand() }

type (
	ResolveCmd struct{ URL string }
	CreateCmd  struct{ Channel models.Channel }
	UpdateCmd  struct {
		ID      string
		Channel models.Channel
	}
	SyncCmd   struct{ ID string }
	ReloadCmd struct{}
)

func (ResolveCmd) isCommand() {}
func (CreateCmd) isCommand()  {}
func (UpdateCmd) isCommand()  {}
func (SyncCmd) isCommand()    {}
func (ReloadCmd) isCommand()  {}

// Validation messages.
const (
	MsgURLRequired       = "url is required"
	MsgNameRequired      = "channel name is required"
	MsgLanguagesRequired = "select at least one language"
	MsgUnknownType       = "unknown channel type"
)

// NewDraft is the detail form pre-filled from a resolved identity.
func NewDraft(id models.Identity, url string) Draft {
	return Draft{
		URL: url,
		Channel: models.Channel{
			ChannelName: id.ChannelName,
			ChannelID:   id.ChannelID,
			FeedURL:     id.FeedURL,
			ChannelType: models.DefaultChannelType,
			Languages:   []models.Language{},
			IsActive:    true,
			FetchVideos: true,
			FetchShorts: false,
		},
	}
}

// Reduce computes the next state and the commands to run. It is pure.
// Events that do not apply to the current state leave it unchanged.
func Reduce(s State, ev Event) (State, []Command) {
	if _, ok := ev.(Close); ok {
		return Idle{}, nil
	}

	switch st := s.(type) {
	case Idle:
		switch e := ev.(type) {
		case OpenAdd:
			return URLEntry{}, nil
		case OpenEdit:
			ch := e.Channel
			ch.Languages = append([]models.Language{}, ch.Languages...)
			return DetailEntry{Draft: Draft{Channel: ch}}, nil
		}

	case URLEntry:
		switch e := ev.(type) {
		case URLChanged:
			return URLEntry{URL: e.URL}, nil
		case SubmitURL:
			u := strings.TrimSpace(st.URL)
			if u == "" {
				st.Err = MsgURLRequired
				return st, nil
			}
			return Resolving{URL: st.URL}, []Command{ResolveCmd{URL: u}}
		}

	case Resolving:
		switch e := ev.(type) {
		case Resolved:
			return DetailEntry{Draft: NewDraft(e.Identity, st.URL)}, nil
		case ResolveFailed:
			return URLEntry{URL: st.URL, Err: e.Message}, nil
		}

	case DetailEntry:
		return reduceDetail(st, ev)

	case Refreshing:
		switch e := ev.(type) {
		case Resolved:
			d := st.Draft
			d.Channel = d.Channel.WithIdentity(e.Identity)
			d.URL = st.RefreshURL
			d.Refreshed = true
			return DetailEntry{Draft: d}, nil
		case ResolveFailed:
			return DetailEntry{Draft: st.Draft, RefreshURL: st.RefreshURL, RefreshErr: e.Message}, nil
		}

	case Saving:
		switch e := ev.(type) {
		case SaveSucceeded:
			cmds := []Command{ReloadCmd{}}
			created := !st.Editing()
			if shouldAutoSync(st.Draft, e.Channel) {
				return Syncing{Channel: e.Channel, Created: created}, append(cmds, SyncCmd{ID: e.Channel.ID})
			}
			return Saved{Channel: e.Channel, Created: created}, cmds
		case SaveFailed:
			return DetailEntry{Draft: st.Draft, Err: e.Message}, nil
		}

	case Syncing:
		if e, ok := ev.(SyncFinished); ok {
			return Saved{
				Channel: st.Channel,
				Created: st.Created,
				Sync:    &SyncOutcome{NewItems: e.Result.NewItems, Err: e.Err},
			}, nil
		}
	}
	return s, nil
}

func reduceDetail(st DetailEntry, ev Event) (State, []Command) {
	switch e := ev.(type) {
	case NameChanged:
		st.Channel.ChannelName = e.Name
		st.Fields = st.Fields.without("channel_name")
	case TypeChanged:
		if !e.Type.Valid() {
			st.Fields = st.Fields.with("channel_type", MsgUnknownType)
			return st, nil
		}
		if e.Type != st.Channel.ChannelType {
			st.Channel.ChannelType = e.Type
			DeriveDefaults(e.Type, FlagsOf(st.Channel)).Apply(&st.Channel)
		}
		st.Fields = st.Fields.without("channel_type")
	case LanguagesChanged:
		st.Channel.Languages = append([]models.Language{}, e.Languages...)
		st.Fields = st.Fields.without("languages")
	case FlagsChanged:
		st.Channel.IsActive = e.IsActive
		e.Flags.Apply(&st.Channel)
	case RefreshURLChanged:
		if !st.Editing() {
			return st, nil
		}
		st.RefreshURL = e.URL
		st.RefreshErr = ""
	case SubmitRefresh:
		if !st.Editing() {
			return st, nil
		}
		u := strings.TrimSpace(st.RefreshURL)
		if u == "" {
			st.RefreshErr = MsgURLRequired
			return st, nil
		}
		return Refreshing{Draft: st.Draft, RefreshURL: st.RefreshURL}, []Command{ResolveCmd{URL: u}}
	case SubmitDetails:
		if _, bad := st.Fields["channel_type"]; bad {
			return st, nil
		}
		if fields := validate(st.Channel); len(fields) > 0 {
			st.Fields = fields
			return st, nil
		}
		ch := st.Channel
		ch.ChannelName = strings.TrimSpace(ch.ChannelName)
		d := st.Draft
		d.Channel = ch
		if d.Editing() {
			return Saving{Draft: d}, []Command{UpdateCmd{ID: ch.ID, Channel: ch}}
		}
		return Saving{Draft: d}, []Command{CreateCmd{Channel: ch}}
	default:
		return st, nil
	}
	return st, nil
}

// shouldAutoSync: a fresh channel, or an edit whose identity was refreshed,
// gets one sync once it is stored with both ids.
func shouldAutoSync(d Draft, stored models.Channel) bool {
	if stored.ID == "" || stored.ChannelID == "" {
		return false
	}
	return !d.Editing() || d.Refreshed
}

func validate(ch models.Channel) FieldErrors {
	var f FieldErrors
	if strings.TrimSpace(ch.ChannelName) == "" {
		f = f.with("channel_name", MsgNameRequired)
	}
	if len(ch.Languages) == 0 {
		f = f.with("languages", MsgLanguagesRequired)
	}
	return f
}

func (f FieldErrors) with(field, msg string) FieldErrors {
	out := make(FieldErrors, len(f)+1)
	for k, v := range f {
		out[k] = v
	}
	out[field] = msg
	return out
}

func (f FieldErrors) without(field string) FieldErrors {
	if _, ok := f[field]; !ok {
		return f
	}
	out := make(FieldErrors, len(f))
	for k, v := range f {
		if k != field {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
