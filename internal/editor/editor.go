// internal/editor/editor.go
//
// Alert editor: the state machine behind the edit page.
//
// Context
// -------
// One Editor serves one page request for one alert id.  It owns the edit
// buffer, talks to the alert API through Store, and answers every operation
// with an Outcome that the HTTP binding turns into a render or a redirect.
//
// States
// ------
//
//	loading ──► ready ──► submitting ──► navigated
//	   │          ▲            │
//	   │          └────────────┘   (save failed, buffer kept)
//	   └──► not_found
//
// Workflow
// --------
//   - Mount    – guard, then Load.  No fetch happens for anonymous visitors.
//   - Load     – fetch the record and prefill the buffer.
//   - Restore  – rebuild the buffer from a posted form (keyword round-trips,
//     failed saves).  Skips the fetch.
//   - AddKeyword / RemoveKeyword – ordered-set edits on the buffer.
//   - Submit   – build the partial update and send it.
//   - Unmount  – invalidate the instance.  Results arriving later are
//     dropped: no state change, no navigation.
//
// Notes
// -----
// • Each fetch or save is a single attempt.
// • Oxford commas, two spaces after periods.
package editor

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/mieszkaniownik/internal/alert"
	"github.com/yanizio/mieszkaniownik/internal/api"
	"github.com/yanizio/mieszkaniownik/internal/auth"
	"github.com/yanizio/mieszkaniownik/internal/metrics"
)

// User-facing banners.
const (
	MsgLoadFailed = "Błąd: Nie udało się pobrać alertu"
	MsgSaveFailed = "Błąd: Nie udało się zaktualizować alertu"
	MsgNotFound   = "Alert nie został znaleziony"
)

var (
	// ErrBusy rejects a second fetch or save while one is in flight.
	ErrBusy = errors.New("editor: operation in flight")
	// ErrNotReady rejects edits outside the ready state.
	ErrNotReady = errors.New("editor: not ready")
	// ErrUnmounted reports an operation on, or a result for, a dead instance.
	ErrUnmounted = errors.New("editor: unmounted")
)

// State is the lifecycle position of an Editor.
type State int

const (
	StateLoading State = iota
	StateReady
	StateNotFound
	StateSubmitting
	StateNavigated
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateNotFound:
		return "not_found"
	case StateSubmitting:
		return "submitting"
	case StateNavigated:
		return "navigated"
	default:
		return "unknown"
	}
}

// Store is the slice of the alert API the editor needs.
type Store interface {
	FetchAlert(ctx context.Context, id string) (*alert.Record, error)
	UpdateAlert(ctx context.Context, id string, p alert.Patch) error
}

// Session is the identity provider.  It is injected per request.
type Session interface {
	CurrentUser() (auth.User, bool)
	Token() (string, bool)
	Clear() error
}

// Routes are the navigation targets.
type Routes struct {
	Login   string
	Alerts  string
	Matches string
}

// Outcome tells the binding what to do next.  A non-empty Redirect means a
// 303 to that path, with Flash queued for the next page.  Otherwise the
// binding renders the current View with Status.
type Outcome struct {
	Redirect string
	Flash    string
	Status   int
}

// Navigates reports whether the outcome leaves the page.
func (o Outcome) Navigates() bool { return o.Redirect != "" }

// View is a render snapshot.  It shares nothing with the Editor.
type View struct {
	ID     string
	State  State
	Buffer alert.Buffer
	Errors []alert.FieldError
	Banner string
	Detail string
	Saving bool
}

// FieldError returns the message for field, if any.
func (v View) FieldError(field string) string {
	for _, fe := range v.Errors {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}

// Editor is safe for use from the request goroutine and the context
// watcher installed by BindContext.
type Editor struct {
	id     string
	store  Store
	routes Routes
	log    *zap.SugaredLogger

	mu        sync.Mutex
	state     State
	gen       uint64
	unmounted bool
	loading   bool
	saving    bool
	buf       *alert.Buffer
	errs      []alert.FieldError
	banner    string
	detail    string
}

// New returns an Editor in the loading state.  A nil logger selects the
// global one.
func New(id string, store Store, routes Routes, log *zap.SugaredLogger) *Editor {
	if log == nil {
		log = zap.S()
	}
	return &Editor{
		id:     id,
		store:  store,
		routes: routes,
		log:    log.With("alert_id", id),
		state:  StateLoading,
		buf:    &alert.Buffer{},
	}
}

// BindContext unmounts the editor when ctx is cancelled.  The returned stop
// function detaches the watcher.
func (e *Editor) BindContext(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, e.Unmount)
}

// State reports the current state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Guard redirects to login when there is neither an in-memory user nor a
// persisted token.  ok is false when the caller must stop.
func (e *Editor) Guard(sess Session) (Outcome, bool) {
	_, hasUser := sess.CurrentUser()
	_, hasToken := sess.Token()
	if !hasUser && !hasToken {
		return Outcome{Redirect: e.routes.Login}, false
	}
	return Outcome{}, true
}

// Mount guards and loads.
func (e *Editor) Mount(ctx context.Context, sess Session) (Outcome, error) {
	if out, ok := e.Guard(sess); !ok {
		count("mount", "denied")
		return out, nil
	}
	return e.Load(ctx, sess)
}

// Load fetches the record and prefills the buffer.
func (e *Editor) Load(ctx context.Context, sess Session) (Outcome, error) {
	e.mu.Lock()
	switch {
	case e.unmounted:
		e.mu.Unlock()
		return Outcome{}, ErrUnmounted
	case e.loading || e.saving:
		e.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	e.state = StateLoading
	e.loading = true
	gen := e.gen
	e.mu.Unlock()

	rec, err := e.store.FetchAlert(ctx, e.id)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stale(ctx, gen) {
		e.log.Debugw("late fetch result dropped", "err", err)
		count("load", "ignored")
		return Outcome{}, ErrUnmounted
	}
	e.loading = false

	switch {
	case err == nil:
		e.buf = alert.FromRecord(rec)
		e.state = StateReady
		count("load", "ok")
		return Outcome{Status: http.StatusOK}, nil

	case api.IsNotFound(err):
		e.log.Infow("alert not found", "err", err)
		e.state = StateNotFound
		e.banner = MsgNotFound
		count("load", "not_found")
		return Outcome{Status: http.StatusNotFound}, nil

	case errors.Is(err, api.ErrUnauthorized):
		e.log.Infow("token refused, ending session", "err", err)
		if cerr := sess.Clear(); cerr != nil {
			e.log.Warnw("session clear failed", "err", cerr)
		}
		count("load", "unauthorized")
		return Outcome{Redirect: e.routes.Login}, nil

	default:
		e.log.Errorw("alert fetch failed", "err", err)
		count("load", "error")
		return Outcome{Redirect: e.routes.Alerts, Flash: MsgLoadFailed}, nil
	}
}

// Restore rebuilds the buffer from a posted form and enters ready.
func (e *Editor) Restore(form url.Values) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unmounted {
		return ErrUnmounted
	}
	if e.loading || e.saving {
		return ErrBusy
	}
	e.buf = alert.FromForm(form)
	e.state = StateReady
	return nil
}

// AddKeyword trims input and appends it unless empty or already present.
// On reject the input stays in the buffer.
func (e *Editor) AddKeyword(input string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editable(); err != nil {
		return false, err
	}
	e.buf.KeywordInput = input
	added := e.buf.AddKeyword()
	count("add_keyword", result(added))
	return added, nil
}

// RemoveKeyword drops k.  Absent keywords are a no-op.
func (e *Editor) RemoveKeyword(k string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.editable(); err != nil {
		return false, err
	}
	removed := e.buf.RemoveKeyword(k)
	count("remove_keyword", result(removed))
	return removed, nil
}

// Submit sends the buffer as a partial update.  Field errors keep the
// editor ready and send nothing.
func (e *Editor) Submit(ctx context.Context, sess Session) (Outcome, error) {
	e.mu.Lock()
	if e.saving {
		e.mu.Unlock()
		return Outcome{}, ErrBusy
	}
	if err := e.editable(); err != nil {
		e.mu.Unlock()
		return Outcome{}, err
	}

	patch, ferrs := e.buf.Patch()
	if len(ferrs) > 0 {
		e.errs = ferrs
		e.mu.Unlock()
		count("save", "invalid")
		return Outcome{Status: http.StatusUnprocessableEntity}, nil
	}

	e.errs = nil
	e.banner, e.detail = "", ""
	e.saving = true
	e.state = StateSubmitting
	gen := e.gen
	e.mu.Unlock()

	err := e.store.UpdateAlert(ctx, e.id, patch)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stale(ctx, gen) {
		e.log.Debugw("late save result dropped", "err", err)
		count("save", "ignored")
		return Outcome{}, ErrUnmounted
	}
	e.saving = false

	if err == nil {
		e.state = StateNavigated
		count("save", "ok")
		return Outcome{Redirect: e.routes.Matches + "?alert=" + url.QueryEscape(e.id)}, nil
	}

	e.state = StateReady
	if errors.Is(err, api.ErrUnauthorized) {
		e.log.Infow("token refused, ending session", "err", err)
		if cerr := sess.Clear(); cerr != nil {
			e.log.Warnw("session clear failed", "err", cerr)
		}
		count("save", "unauthorized")
		return Outcome{Redirect: e.routes.Login}, nil
	}

	e.log.Errorw("alert update failed", "err", err)
	e.banner = MsgSaveFailed
	count("save", "error")

	var ve *api.ValidationError
	switch {
	case errors.As(err, &ve):
		e.detail = ve.Message
		return Outcome{Status: http.StatusUnprocessableEntity}, nil
	case api.IsNotFound(err):
		return Outcome{Status: http.StatusNotFound}, nil
	default:
		return Outcome{Status: http.StatusBadGateway}, nil
	}
}

// Fail marks the buffer with externally detected field errors (form
// validation) so the next View shows them.
func (e *Editor) Fail(ferrs []alert.FieldError, banner string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs[:0:0], ferrs...)
	e.banner = banner
}

// Unmount invalidates the editor.  Safe to call more than once.
func (e *Editor) Unmount() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.unmounted {
		return
	}
	e.unmounted = true
	e.gen++
}

// View returns a render snapshot.
func (e *Editor) View() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	buf := alert.Buffer{
		Values:       make(map[string]string, len(e.buf.Values)),
		Keywords:     append([]string{}, e.buf.Keywords...),
		KeywordInput: e.buf.KeywordInput,
	}
	for k, v := range e.buf.Values {
		buf.Values[k] = v
	}
	return View{
		ID:     e.id,
		State:  e.state,
		Buffer: buf,
		Errors: append([]alert.FieldError(nil), e.errs...),
		Banner: e.banner,
		Detail: e.detail,
		Saving: e.saving,
	}
}

// -----------------------------------------------------------------------------
// internals
// -----------------------------------------------------------------------------

// stale reports whether a result tagged gen belongs to a dead instance.
// Caller holds mu.
func (e *Editor) stale(ctx context.Context, gen uint64) bool {
	return e.unmounted || gen != e.gen || ctx.Err() != nil
}

// editable checks the ready state.  Caller holds mu.
func (e *Editor) editable() error {
	switch {
	case e.unmounted:
		return ErrUnmounted
	case e.state != StateReady:
		return ErrNotReady
	}
	return nil
}

func count(op, res string) { metrics.AlertEditTotal.WithLabelValues(op, res).Inc() }

func result(changed bool) string {
	if changed {
		return "ok"
	}
	return "noop"
}
