package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/voyagen/channeldesk/internal/apiclient"
	"github.com/voyagen/channeldesk/internal/console"
	"github.com/voyagen/channeldesk/internal/models"
)

var errUsage = errors.New("invalid usage")

// backend is what channelctl needs from the server.
type backend interface {
	console.API
	GetChannel(ctx context.Context, id string) (*models.Channel, error)
	GetSetting(ctx context.Context, key string) (json.RawMessage, error)
	PutSetting(ctx context.Context, key string, value json.RawMessage) error
}

type app struct {
	api backend
	con *console.Console
	in  *bufio.Reader
	out io.Writer
}

func newApp(api backend, in io.Reader, out io.Writer, log zerolog.Logger) *app {
	return &app{
		api: api,
		con: console.New(api, log),
		in:  bufio.NewReader(in),
		out: out,
	}
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "list":
		return a.list(ctx, rest)
	case "add":
		return a.add(ctx, rest)
	case "edit":
		return a.edit(ctx, rest)
	case "sync":
		return a.sync(ctx, rest)
	case "delete":
		return a.delete(ctx, rest)
	case "settings":
		return a.settings(ctx, rest)
	case "help", "-h", "--help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprint(a.out, usage)
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(a.out)
	lang := fs.String("language", "", "filter by language")
	typ := fs.String("type", "", "filter by channel type")
	search := fs.String("search", "", "case-insensitive name search")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.con.Records.SetFilter(ctx, models.Language(*lang), models.ChannelType(*typ)); err != nil {
		return errors.New(apiclient.Message(err))
	}
	a.con.Records.SetSearch(*search)

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tLANGUAGES\tACTIVE\tVIDEOS\tCHANNEL ID")
	for _, ch := range a.con.Records.Visible() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%d\t%s\n",
			ch.ID, ch.ChannelName, ch.ChannelType, joinLanguages(ch.Languages), ch.IsActive, ch.VideoCount, ch.ChannelID)
	}
	return tw.Flush()
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(a.out)
	rawURL := fs.String("url", "", "channel URL")
	langs := fs.String("languages", "", "comma-separated languages")
	typ := fs.String("type", string(models.DefaultChannelType), "channel type")
	name := fs.String("name", "", "override the resolved channel name")
	inactive := fs.Bool("inactive", false, "register as inactive")
	videos := fs.Bool("videos", true, "ingest regular videos")
	shorts := fs.Bool("shorts", false, "ingest shorts (default depends on type)")
	fullMovies := fs.Bool("full-movies", false, "movie channels: keep only full-length movies")
	if err := fs.Parse(args); err != nil {
		return err
	}
	set := setFlags(fs)

	flow := a.con.Flow
	flow.Dispatch(ctx, console.OpenAdd{})
	flow.Dispatch(ctx, console.URLChanged{URL: *rawURL})
	flow.Dispatch(ctx, console.SubmitURL{})
	flow.Wait()

	switch st := flow.State().(type) {
	case console.URLEntry:
		return errors.New(st.Err)
	case console.DetailEntry:
		fmt.Fprintf(a.out, "resolved %q (%s)\n", st.Channel.ChannelName, st.Channel.ChannelID)
	default:
		return fmt.Errorf("unexpected state %T", st)
	}

	if set["name"] {
		flow.Dispatch(ctx, console.NameChanged{Name: *name})
	}
	flow.Dispatch(ctx, console.TypeChanged{Type: models.ChannelType(*typ)})
	flow.Dispatch(ctx, console.LanguagesChanged{Languages: splitLanguages(*langs)})

	st := flow.State().(console.DetailEntry)
	flags := console.FlagsOf(st.Channel)
	flags.FetchVideos = *videos
	if set["shorts"] {
		flags.FetchShorts = *shorts
	}
	flags.FullMoviesOnly = *fullMovies
	flow.Dispatch(ctx, console.FlagsChanged{IsActive: !*inactive, Flags: flags})

	return a.save(ctx)
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(a.out)
	id := fs.String("id", "", "channel id")
	refresh := fs.String("refresh", "", "re-resolve the channel identity from this URL")
	name := fs.String("name", "", "channel name")
	typ := fs.String("type", "", "channel type")
	langs := fs.String("languages", "", "comma-separated languages")
	active := fs.Bool("active", true, "active")
	videos := fs.Bool("videos", true, "ingest regular videos")
	shorts := fs.Bool("shorts", false, "ingest shorts")
	fullMovies := fs.Bool("full-movies", false, "movie channels: keep only full-length movies")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("%w: -id is required", errUsage)
	}
	set := setFlags(fs)

	ch, err := a.api.GetChannel(ctx, *id)
	if err != nil {
		return errors.New(apiclient.Message(err))
	}

	flow := a.con.Flow
	flow.Dispatch(ctx, console.OpenEdit{Channel: *ch})

	if set["refresh"] {
		flow.Dispatch(ctx, console.RefreshURLChanged{URL: *refresh})
		flow.Dispatch(ctx, console.SubmitRefresh{})
		flow.Wait()
		st, _ := flow.State().(console.DetailEntry)
		if st.RefreshErr != "" {
			return errors.New(st.RefreshErr)
		}
		fmt.Fprintf(a.out, "refreshed identity: %q (%s)\n", st.Channel.ChannelName, st.Channel.ChannelID)
	}

	if set["name"] {
		flow.Dispatch(ctx, console.NameChanged{Name: *name})
	}
	if set["type"] {
		flow.Dispatch(ctx, console.TypeChanged{Type: models.ChannelType(*typ)})
	}
	if set["languages"] {
		flow.Dispatch(ctx, console.LanguagesChanged{Languages: splitLanguages(*langs)})
	}
	if set["active"] || set["videos"] || set["shorts"] || set["full-movies"] {
		st := flow.State().(console.DetailEntry)
		isActive, flags := st.Channel.IsActive, console.FlagsOf(st.Channel)
		if set["active"] {
			isActive = *active
		}
		if set["videos"] {
			flags.FetchVideos = *videos
		}
		if set["shorts"] {
			flags.FetchShorts = *shorts
		}
		if set["full-movies"] {
			flags.FullMoviesOnly = *fullMovies
		}
		flow.Dispatch(ctx, console.FlagsChanged{IsActive: isActive, Flags: flags})
	}

	return a.save(ctx)
}

// save submits the detail form and reports the outcome, including any automatic sync.
func (a *app) save(ctx context.Context) error {
	flow := a.con.Flow
	flow.Dispatch(ctx, console.SubmitDetails{})
	flow.Wait()

	switch st := flow.State().(type) {
	case console.DetailEntry:
		if len(st.Fields) > 0 {
			return errors.New(fieldErrors(st.Fields))
		}
		return errors.New(st.Err)
	case console.Saved:
		verb := "updated"
		if st.Created {
			verb = "created"
		}
		fmt.Fprintf(a.out, "%s %q (id %s)\n", verb, st.Channel.ChannelName, st.Channel.ID)
		if st.Sync != nil {
			if st.Sync.Err != "" {
				fmt.Fprintf(a.out, "sync failed: %s (retry with: channelctl sync -id %s)\n", st.Sync.Err, st.Channel.ID)
			} else {
				fmt.Fprintf(a.out, "synced: %d new items\n", st.Sync.NewItems)
			}
		}
		flow.Dispatch(ctx, console.Close{})
		return nil
	default:
		return fmt.Errorf("unexpected state %T", st)
	}
}

func (a *app) sync(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(a.out)
	id := fs.String("id", "", "channel id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("%w: -id is required", errUsage)
	}

	res, err := a.con.Sync(ctx, *id)
	if err != nil {
		if errors.Is(err, console.ErrSyncInFlight) {
			return err
		}
		return errors.New(apiclient.Message(err))
	}
	if res.Queued {
		fmt.Fprintf(a.out, "sync queued for %s\n", *id)
		return nil
	}
	fmt.Fprintf(a.out, "synced %s: %d new items\n", *id, res.NewItems)
	return nil
}

func (a *app) delete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(a.out)
	id := fs.String("id", "", "channel id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return fmt.Errorf("%w: -id is required", errUsage)
	}

	ch, err := a.api.GetChannel(ctx, *id)
	if err != nil {
		return errors.New(apiclient.Message(err))
	}

	guard := a.con.Guard
	fmt.Fprintf(a.out, "%s [y/N] ", guard.Request(*ch))
	answer, _ := a.in.ReadString('\n')
	if !strings.EqualFold(strings.TrimSpace(answer), "y") {
		guard.Cancel()
		fmt.Fprintln(a.out, "cancelled")
		return nil
	}
	if err := guard.Confirm(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %q\n", ch.ChannelName)
	return nil
}

func (a *app) settings(ctx context.Context, args []string) error {
	switch {
	case len(args) == 2 && args[0] == "get":
		raw, err := a.api.GetSetting(ctx, args[1])
		if err != nil {
			return errors.New(apiclient.Message(err))
		}
		fmt.Fprintln(a.out, string(raw))
		return nil
	case len(args) == 3 && args[0] == "put":
		if !json.Valid([]byte(args[2])) {
			return errors.New("value must be valid JSON")
		}
		if err := a.api.PutSetting(ctx, args[1], json.RawMessage(args[2])); err != nil {
			return errors.New(apiclient.Message(err))
		}
		fmt.Fprintf(a.out, "saved %s\n", args[1])
		return nil
	default:
		return fmt.Errorf("%w: settings get KEY | settings put KEY JSON", errUsage)
	}
}

func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func splitLanguages(s string) []models.Language {
	var out []models.Language
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(strings.ToLower(part)); p != "" {
			out = append(out, models.Language(p))
		}
	}
	return out
}

func joinLanguages(ls []models.Language) string {
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = string(l)
	}
	return strings.Join(parts, ",")
}

func fieldErrors(f console.FieldErrors) string {
	msgs := make([]string, 0, len(f))
	for _, k := range []string{"channel_name", "channel_type", "languages"} {
		if m, ok := f[k]; ok {
			msgs = append(msgs, m)
		}
	}
	return strings.Join(msgs, "; ")
}
