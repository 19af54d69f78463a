package console

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/voyagen/channeldesk/internal/apiclient"
)

// Workflow runs the onboarding state machine: it feeds events to Reduce,
// executes the resulting commands in the background and feeds their
// responses back.
//
// Closing the flow starts a new generation. Responses belonging to an older
// generation are dropped; the underlying calls are not cancelled.
type Workflow struct {
	resolver Resolver
	writer   Writer
	syncs    *SyncTrigger
	records  *RecordStore
	log      zerolog.Logger

	mu        sync.Mutex
	state     State
	gen       uint64
	listeners []func(State)
	wg        sync.WaitGroup
}

// NewWorkflow creates an idle workflow. records may be nil.
func NewWorkflow(r Resolver, w Writer, syncs *SyncTrigger, records *RecordStore, log zerolog.Logger) *Workflow {
	return &Workflow{
		resolver: r,
		writer:   w,
		syncs:    syncs,
		records:  records,
		log:      log,
		state:    Idle{},
	}
}

// State returns the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// OnChange registers fn to be called after every transition.
func (w *Workflow) OnChange(fn func(State)) {
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	w.mu.Unlock()
}

// Dispatch applies a user event. Commands run on their own goroutines with
// ctx; Dispatch does not wait for them.
func (w *Workflow) Dispatch(ctx context.Context, ev Event) {
	w.mu.Lock()
	w.apply(ctx, ev)
}

// Wait blocks until every command started so far, and every command those
// started in turn, has finished.
func (w *Workflow) Wait() {
	w.wg.Wait()
}

// apply runs one transition. It is entered with w.mu held and releases it.
func (w *Workflow) apply(ctx context.Context, ev Event) {
	prev := w.state
	next, cmds := Reduce(prev, ev)
	if _, idle := next.(Idle); idle {
		if _, was := prev.(Idle); !was {
			w.gen++
		}
	}
	w.state = next
	gen := w.gen
	listeners := append([]func(State){}, w.listeners...)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	for _, c := range cmds {
		w.start(ctx, gen, c)
	}
}

func (w *Workflow) start(ctx context.Context, gen uint64, c Command) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ev := w.exec(ctx, c)
		if ev == nil {
			return
		}
		w.mu.Lock()
		if gen != w.gen {
			w.mu.Unlock()
			w.log.Debug().Type("event", ev).Msg("dropping response for a closed dialog")
			return
		}
		w.apply(ctx, ev)
	}()
}

func (w *Workflow) exec(ctx context.Context, c Command) Event {
	switch c := c.(type) {
	case ResolveCmd:
		id, err := w.resolver.ExtractDetails(ctx, c.URL)
		if err != nil {
			return ResolveFailed{Message: apiclient.Message(err)}
		}
		return Resolved{Identity: id}
	case CreateCmd:
		ch, err := w.writer.CreateChannel(ctx, c.Channel)
		if err != nil {
			return SaveFailed{Message: apiclient.Message(err)}
		}
		return SaveSucceeded{Channel: *ch}
	case UpdateCmd:
		ch, err := w.writer.UpdateChannel(ctx, c.ID, c.Channel)
		if err != nil {
			return SaveFailed{Message: apiclient.Message(err)}
		}
		return SaveSucceeded{Channel: *ch}
	case SyncCmd:
		res, err := w.syncs.Trigger(ctx, c.ID)
		if err != nil {
			return SyncFinished{Err: syncMessage(err)}
		}
		return SyncFinished{Result: res}
	case ReloadCmd:
		if w.records != nil {
			if err := w.records.Load(ctx); err != nil {
				w.log.Warn().Err(err).Msg("reload channel list")
			}
		}
		return nil
	}
	return nil
}

func syncMessage(err error) string {
	if errors.Is(err, ErrSyncInFlight) {
		return err.Error()
	}
	return apiclient.Message(err)
}
