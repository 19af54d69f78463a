package resolver

import (
	"net/url"
	"regexp"
	"strings"
)

// RefKind says how a channel reference must be looked up.
type RefKind int

const (
	RefChannelID RefKind = iota
	RefHandle
	RefUsername
	RefCustom
)

func (k RefKind) String() string {
	switch k {
	case RefChannelID:
		return "channel_id"
	case RefHandle:
		return "handle"
	case RefUsername:
		return "username"
	case RefCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Ref is a parsed channel reference.
type Ref struct {
	Kind  RefKind
	Value string
}

var reChannelID = regexp.MustCompile(`^UC[0-9A-Za-z_-]{22}$`)

// reserved top-level paths that never name a channel.
var reserved = map[string]bool{
	"watch": true, "shorts": true, "playlist": true, "results": true,
	"feed": true, "embed": true, "live": true, "hashtag": true,
}

// ParseRef discriminates the accepted channel URL shapes:
// @handle, youtube.com/@handle, /channel/<id>, /user/<name>, /c/<name>,
// legacy youtube.com/<name>, and a bare UC… id.
func ParseRef(raw string) (Ref, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Ref{}, ErrEmptyURL
	}
	if strings.HasPrefix(s, "@") {
		return handleRef(s[1:])
	}
	if reChannelID.MatchString(s) {
		return Ref{Kind: RefChannelID, Value: s}, nil
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return Ref{}, ErrUnresolvable
	}
	host := strings.ToLower(u.Hostname())
	if host != "youtube.com" && !strings.HasSuffix(host, ".youtube.com") {
		return Ref{}, ErrUnresolvable
	}

	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(parts) == 0 {
		return Ref{}, ErrUnresolvable
	}
	first := parts[0]
	switch {
	case strings.HasPrefix(first, "@"):
		return handleRef(first[1:])
	case first == "channel" && len(parts) > 1:
		if !reChannelID.MatchString(parts[1]) {
			return Ref{}, ErrUnresolvable
		}
		return Ref{Kind: RefChannelID, Value: parts[1]}, nil
	case first == "user" && len(parts) > 1:
		return Ref{Kind: RefUsername, Value: parts[1]}, nil
	case first == "c" && len(parts) > 1:
		return Ref{Kind: RefCustom, Value: parts[1]}, nil
	case len(parts) == 1 && !reserved[strings.ToLower(first)] && first != "channel" && first != "user" && first != "c":
		return Ref{Kind: RefCustom, Value: first}, nil
	}
	return Ref{}, ErrUnresolvable
}

func handleRef(h string) (Ref, error) {
	h = strings.TrimSpace(h)
	if h == "" {
		return Ref{}, ErrUnresolvable
	}
	if unescaped, err := url.PathUnescape(h); err == nil {
		h = unescaped
	}
	return Ref{Kind: RefHandle, Value: h}, nil
}
