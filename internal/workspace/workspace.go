package workspace

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/helpdesk-console/internal/domain"
	"github.com/spec-kit/helpdesk-console/internal/events"
	"github.com/spec-kit/helpdesk-console/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-console/pkg/util/errorutil"
)

const (
	EmptyCollectionMessage = "No tickets have been submitted yet."
	EmptyFilterMessage     = "Try adjusting your filters."
)

// Gateway is the slice of the ticket backend the workspace needs.
type Gateway interface {
	ListTickets(ctx context.Context) ([]domain.Ticket, error)
	UpdateAdminSolution(ctx context.Context, ticketID, adminSolution string) (*domain.Ticket, error)
}

// Options configures a Workspace.
type Options struct {
	PageSize      int
	PreviewLength int
	Actor         func() string
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	Dispatcher    events.Dispatcher
}

// Workspace is the admin ticket-review view-model: the authoritative ticket
// collection, its derived views, and per-ticket transient state. All state
// lives behind one lock, so every read observes a whole mutation or none.
type Workspace struct {
	gw         Gateway
	pageSize   int
	previewLen int
	actor      func() string
	logger     *zap.Logger
	metrics    *observability.Metrics
	dispatcher events.Dispatcher
	refreshes  singleflight.Group

	mu       sync.RWMutex
	tickets  []domain.Ticket
	index    map[string]int
	stats    Stats
	filter   Filter
	filtered []domain.Ticket
	page     int
	loading  bool
	err      error
	expanded map[string]struct{}
	drafts   map[string]string
	unsynced map[string]struct{}
	saveSeq  map[string]uint64

	// generation advances on Reset; calls started before a reset drop
	// their results.
	generation uint64
}

// New returns an empty workspace. Call Refresh to populate it.
func New(gw Gateway, opts Options) *Workspace {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	previewLen := opts.PreviewLength
	if previewLen <= 0 {
		previewLen = DefaultPreviewLength
	}
	return &Workspace{
		gw:         gw,
		pageSize:   pageSize,
		previewLen: previewLen,
		actor:      opts.Actor,
		logger:     logger.Named("workspace"),
		metrics:    opts.Metrics,
		dispatcher: opts.Dispatcher,
		index:      map[string]int{},
		filter:     Filter{}.Normalize(),
		filtered:   []domain.Ticket{},
		page:       1,
		expanded:   map[string]struct{}{},
		drafts:     map[string]string{},
		unsynced:   map[string]struct{}{},
		saveSeq:    map[string]uint64{},
	}
}

// Refresh replaces the collection with the backend's current list. Concurrent
// calls share one in-flight fetch. On failure the previous collection is kept
// and a FetchError is both returned and held for Err.
func (w *Workspace) Refresh(ctx context.Context) error {
	// The shared fetch must outlive any single waiter; the gateway's
	// transport timeout bounds it.
	ch := w.refreshes.DoChan("refresh", func() (interface{}, error) {
		return nil, w.refresh(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return apperrors.NewFetchError(apperrors.NewNetworkError(ctx.Err()))
	}
}

func (w *Workspace) refresh(ctx context.Context) error {
	w.setLoading(true)
	defer w.setLoading(false)

	w.mu.RLock()
	gen := w.generation
	w.mu.RUnlock()

	start := time.Now()
	tickets, err := w.gw.ListTickets(ctx)
	if err != nil {
		fetchErr := apperrors.NewFetchError(err)
		w.mu.Lock()
		if w.generation == gen {
			w.err = fetchErr
		}
		w.mu.Unlock()

		w.logger.Error("ticket refresh failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		w.metrics.RecordRefresh("error")
		w.publish(ctx, events.EventTicketsRefreshFailed, "", events.RefreshPayload{Error: err.Error()})
		return fetchErr
	}

	tickets = w.uniqueByID(tickets)
	index := make(map[string]int, len(tickets))
	for i := range tickets {
		index[tickets[i].ID] = i
	}
	stats := ComputeStats(tickets)

	w.mu.Lock()
	if w.generation != gen {
		w.mu.Unlock()
		w.logger.Info("discarding refresh started before reset", zap.Int("count", len(tickets)))
		return nil
	}
	w.tickets = tickets
	w.index = index
	w.stats = stats
	w.err = nil
	for id := range w.expanded {
		if _, ok := index[id]; !ok {
			delete(w.expanded, id)
		}
	}
	for id := range w.drafts {
		if _, ok := index[id]; !ok {
			delete(w.drafts, id)
		}
	}
	w.unsynced = map[string]struct{}{}
	w.refilterLocked()
	w.mu.Unlock()

	w.logger.Info("tickets refreshed",
		zap.Int("count", len(tickets)),
		zap.Int("resolved", stats.Resolved),
		zap.Duration("elapsed", time.Since(start)))
	w.metrics.RecordRefresh("ok")
	w.publish(ctx, events.EventTicketsRefreshed, "", events.RefreshPayload{Count: len(tickets)})
	return nil
}

// uniqueByID keeps the first ticket per id and drops id-less tickets.
func (w *Workspace) uniqueByID(tickets []domain.Ticket) []domain.Ticket {
	seen := make(map[string]struct{}, len(tickets))
	out := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if t.ID == "" {
			w.logger.Warn("ignoring ticket without id", zap.String("subject", t.Subject))
			continue
		}
		if _, dup := seen[t.ID]; dup {
			w.logger.Warn("ignoring duplicate ticket", zap.String("ticket_id", t.ID))
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (w *Workspace) setLoading(loading bool) {
	w.mu.Lock()
	w.loading = loading
	w.mu.Unlock()
}

// Reset discards the collection and all transient state, as when the
// dashboard is left. A refresh is the only way back.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.generation++
	w.tickets = nil
	w.index = map[string]int{}
	w.stats = Stats{}
	w.filter = Filter{}.Normalize()
	w.filtered = []domain.Ticket{}
	w.page = 1
	w.err = nil
	w.expanded = map[string]struct{}{}
	w.drafts = map[string]string{}
	w.unsynced = map[string]struct{}{}
}

// Loading reports whether a refresh is in flight.
func (w *Workspace) Loading() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.loading
}

// Tickets returns a copy of the authoritative collection.
func (w *Workspace) Tickets() []domain.Ticket {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]domain.Ticket{}, w.tickets...)
}

// Ticket looks up one ticket by id.
func (w *Workspace) Ticket(id string) (domain.Ticket, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	idx, ok := w.index[id]
	if !ok {
		return domain.Ticket{}, false
	}
	return w.tickets[idx], true
}

// Stats returns counts over the entire collection.
func (w *Workspace) Stats() Stats {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.stats
}

// ApplyFilters sets the predicate, resets the page cursor to 1 and returns
// the filtered view.
func (w *Workspace) ApplyFilters(f Filter) []domain.Ticket {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.filter = f.Normalize()
	w.page = 1
	w.refilterLocked()
	return append([]domain.Ticket{}, w.filtered...)
}

// Filter returns the active predicate.
func (w *Workspace) Filter() Filter {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.filter
}

// Filtered returns the whole filtered view in collection order.
func (w *Workspace) Filtered() []domain.Ticket {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]domain.Ticket{}, w.filtered...)
}

// Paginate moves the page cursor and returns that page of the filtered view.
// page < 1 is treated as 1; pageSize <= 0 uses the configured size.
func (w *Workspace) Paginate(page, pageSize int) Page {
	w.mu.Lock()
	defer w.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = w.pageSize
	}
	w.page = page
	return paginate(w.filtered, page, pageSize)
}

// CurrentPage returns the page under the cursor at the configured size.
func (w *Workspace) CurrentPage() Page {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return paginate(w.filtered, w.page, w.pageSize)
}

func (w *Workspace) refilterLocked() {
	w.filtered = w.filter.apply(w.tickets)
}

// EmptyMessage explains an empty filtered view, or is "" when there is
// something to show.
func (w *Workspace) EmptyMessage() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.emptyMessageLocked()
}

func (w *Workspace) emptyMessageLocked() string {
	switch {
	case len(w.filtered) > 0:
		return ""
	case len(w.tickets) == 0:
		return EmptyCollectionMessage
	default:
		return EmptyFilterMessage
	}
}

// ToggleExpand flips between the full body and the preview. It returns the
// new expanded state.
func (w *Workspace) ToggleExpand(id string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.index[id]; !ok {
		return false, ticketNotFound(id)
	}
	if _, open := w.expanded[id]; open {
		delete(w.expanded, id)
		return false, nil
	}
	w.expanded[id] = struct{}{}
	return true, nil
}

// IsExpanded reports whether the full body of id is shown.
func (w *Workspace) IsExpanded(id string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, open := w.expanded[id]
	return open
}

// Preview is the body as it should be displayed: full when expanded,
// otherwise truncated to the preview length.
func (w *Workspace) Preview(id string) (string, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	idx, ok := w.index[id]
	if !ok {
		return "", ticketNotFound(id)
	}
	return w.previewLocked(idx), nil
}

func (w *Workspace) previewLocked(idx int) string {
	t := &w.tickets[idx]
	if _, open := w.expanded[t.ID]; open {
		return t.Body
	}
	return Truncate(t.Body, w.previewLen)
}

// BeginEdit opens a draft seeded with the ticket's persisted admin solution.
func (w *Workspace) BeginEdit(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx, ok := w.index[id]
	if !ok {
		return ticketNotFound(id)
	}
	w.drafts[id] = w.tickets[idx].AdminSolution
	return nil
}

// UpdateDraft replaces the draft text of an open edit.
func (w *Workspace) UpdateDraft(id, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, editing := w.drafts[id]; !editing {
		return apperrors.NewValidationError(fmt.Sprintf("ticket %s is not being edited", id), nil)
	}
	w.drafts[id] = text
	return nil
}

// CancelEdit discards the draft. The ticket keeps its last persisted value.
func (w *Workspace) CancelEdit(id string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.drafts, id)
}

// Draft returns the in-progress text for id, if an edit is open.
func (w *Workspace) Draft(id string) (string, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	text, ok := w.drafts[id]
	return text, ok
}

// SaveAdminSolution applies text locally and closes the edit before the
// backend is asked to persist it. A persistence failure is logged, held for
// Err and recorded in Unsynced; the local value is not rolled back.
func (w *Workspace) SaveAdminSolution(ctx context.Context, id, text string) error {
	w.mu.Lock()
	idx, ok := w.index[id]
	if !ok {
		w.mu.Unlock()
		return ticketNotFound(id)
	}
	previous := w.tickets[idx].AdminSolution
	w.tickets[idx].AdminSolution = text
	delete(w.drafts, id)
	w.saveSeq[id]++
	seq := w.saveSeq[id]
	gen := w.generation
	w.refilterLocked()
	w.mu.Unlock()

	_, err := w.gw.UpdateAdminSolution(ctx, id, text)

	w.mu.Lock()
	current := w.generation == gen
	latest := current && w.saveSeq[id] == seq
	_, present := w.index[id]
	if latest && present {
		if err != nil {
			w.unsynced[id] = struct{}{}
		} else {
			delete(w.unsynced, id)
		}
	}
	if err != nil && current {
		w.err = err
	}
	w.mu.Unlock()

	payload := events.AdminSolutionPayload{Previous: previous, Current: text}
	if err != nil {
		payload.Error = err.Error()
		w.logger.Error("admin solution not persisted",
			zap.String("ticket_id", id),
			zap.Bool("latest", latest),
			zap.Error(err))
		w.publish(ctx, events.EventAdminSolutionUnsynced, id, payload)
		return err
	}
	w.logger.Info("admin solution saved", zap.String("ticket_id", id))
	w.publish(ctx, events.EventAdminSolutionSaved, id, payload)
	return nil
}

// ToggleResolved flips the ticket's resolved flag locally and recomputes the
// counts. It returns the new value.
func (w *Workspace) ToggleResolved(id string) (bool, error) {
	w.mu.Lock()
	idx, ok := w.index[id]
	if !ok {
		w.mu.Unlock()
		return false, ticketNotFound(id)
	}
	w.tickets[idx].IsResolved = !w.tickets[idx].IsResolved
	resolved := w.tickets[idx].IsResolved
	w.stats = ComputeStats(w.tickets)
	w.refilterLocked()
	w.mu.Unlock()

	w.publish(context.Background(), events.EventTicketResolvedToggled, id, events.ResolvedPayload{IsResolved: resolved})
	return resolved, nil
}

// Err is the error currently surfaced to the user, if any.
func (w *Workspace) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.err
}

// DismissError clears the surfaced error.
func (w *Workspace) DismissError() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.err = nil
}

// Unsynced lists tickets whose local admin solution failed to persist.
func (w *Workspace) Unsynced() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return sortedKeys(w.unsynced)
}

func (w *Workspace) publish(ctx context.Context, eventType events.EventType, ticketID string, payload interface{}) {
	event := events.NewEvent(eventType, ticketID, payload)
	if w.actor != nil {
		event.Actor = w.actor()
	}
	if err := events.Publish(ctx, w.dispatcher, event); err != nil {
		w.logger.Warn("workspace event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}

func ticketNotFound(id string) error {
	return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
}

// IsNotFound reports whether err is an unknown-ticket error.
func IsNotFound(err error) bool {
	return apperrors.HasCode(err, apperrors.CodeNotFound)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
