// Package session holds the editor state of one open project.
//
// A [Session] owns the only mutable [flow.ProjectSnapshot] of a project and
// serializes every mutation behind a mutex. Gestures enter through
// [Session.ApplyNodeChanges]; discrete intents through [Session.Dispatch].
//
// Writes to the [kv.Store] are deferred: each settled change schedules a
// debounced flush, so a burst of edits results in one write. [Session.Flush]
// forces the write and [Session.Close] flushes before releasing the session.
//
// Rejected actions leave a transient hint that disappears after
// Options.HintTimeout unless a newer hint replaces it.
//
// # Usage
//
//	s, err := session.Open(ctx, store, "demo", session.Options{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	defer s.Close(ctx)
//
//	out, err := s.Dispatch(ctx, command.AddItem{Node: "switch-1"})
package session

import (
	"context"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowkeeper/pkg/command"
	"github.com/matzehuels/flowkeeper/pkg/connect"
	"github.com/matzehuels/flowkeeper/pkg/errors"
	"github.com/matzehuels/flowkeeper/pkg/flow"
	"github.com/matzehuels/flowkeeper/pkg/kv"
	"github.com/matzehuels/flowkeeper/pkg/mutate"
	"github.com/matzehuels/flowkeeper/pkg/observability"
	"github.com/matzehuels/flowkeeper/pkg/snapshot"
)

// Default timings.
const (
	DefaultFlushDelay  = 500 * time.Millisecond
	DefaultHintTimeout = 3 * time.Second

	flushTimeout = 10 * time.Second
)

// Options configures a Session.
type Options struct {
	// Keyer derives storage keys. Defaults to kv.DefaultKeyer.
	Keyer kv.Keyer

	// Logger receives load, migration and flush messages.
	// Defaults to log.Default().
	Logger *log.Logger

	// FlushDelay is the quiet period before a deferred write.
	FlushDelay time.Duration

	// HintTimeout is how long a rejection hint stays visible.
	HintTimeout time.Duration

	// Confirmer answers drop-to-group prompts. Nil declines every attach.
	Confirmer mutate.Confirmer

	// SaveLayout also writes the detached editor layout record on flush.
	SaveLayout bool

	// NewID generates graph and node ids. Defaults to random UUIDs.
	NewID func() string
}

func (o *Options) setDefaults() {
	if o.Keyer == nil {
		o.Keyer = kv.NewDefaultKeyer()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.FlushDelay <= 0 {
		o.FlushDelay = DefaultFlushDelay
	}
	if o.HintTimeout <= 0 {
		o.HintTimeout = DefaultHintTimeout
	}
	if o.Confirmer == nil {
		o.Confirmer = mutate.Always(false)
	}
}

// Session is one open project.
type Session struct {
	id     string
	store  kv.Store
	opts   Options
	logger *log.Logger

	mu      sync.Mutex
	project flow.ProjectSnapshot
	report  snapshot.Report
	existed bool
	dirty   bool
	closed  bool
	hint    string
	hintSeq int
	lastErr error
	subs    map[int]func(flow.ProjectSnapshot)
	subSeq  int

	scheduleFlush func(func())
	scheduleHint  func(func())
}

// Open loads projectID from store. A missing or unreadable record yields the
// starter project, and a legacy record is migrated; both are written back on
// the first flush.
func Open(ctx context.Context, store kv.Store, projectID string, opts Options) (*Session, error) {
	if err := errors.ValidateProjectID(projectID); err != nil {
		return nil, err
	}
	opts.setDefaults()

	s := &Session{
		id:            projectID,
		store:         store,
		opts:          opts,
		logger:        opts.Logger.With("project", projectID),
		subs:          map[int]func(flow.ProjectSnapshot){},
		scheduleFlush: debounce.New(opts.FlushDelay),
		scheduleHint:  debounce.New(opts.HintTimeout),
	}

	start := time.Now()
	var data []byte
	var found bool
	err := kv.RetryWithBackoff(ctx, func() error {
		var err error
		data, found, err = store.Get(ctx, opts.Keyer.ProjectKey(projectID))
		return err
	})
	if err != nil {
		observability.Store().OnLoad(ctx, false, false, time.Since(start), err)
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "load project %s", projectID)
	}

	s.existed = found
	s.project, s.report = snapshot.DecodeProject(data, snapshot.Options{NewID: opts.NewID})
	if !found {
		// A missing record is a new project, not a damaged one.
		s.report = snapshot.Report{}
	}
	observability.Store().OnLoad(ctx, s.report.Migrated, s.report.FellBack, time.Since(start), nil)

	switch {
	case !found:
		s.logger.Debug("new project, starting from skeleton")
		s.dirty = true
	case s.report.FellBack:
		s.logger.Warn("project record unusable, starting from skeleton", "problem", s.report.Problem)
		s.dirty = true
	case s.report.Migrated:
		s.logger.Info("migrated legacy project record")
		s.dirty = true
	case s.report.RegeneratedIDs > 0:
		s.logger.Warn("regenerated duplicate or empty ids", "count", s.report.RegeneratedIDs)
		s.dirty = true
	}
	if s.dirty {
		s.scheduleFlush(s.deferredFlush)
	}
	return s, nil
}

// ID returns the project id.
func (s *Session) ID() string { return s.id }

// Existed reports whether a record was found when the session opened.
func (s *Session) Existed() bool { return s.existed }

// Report returns what loading had to repair.
func (s *Session) Report() snapshot.Report { return s.report }

// Project returns a deep copy of the current project.
func (s *Session) Project() flow.ProjectSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.Clone()
}

// Graph returns a deep copy of graph id; an empty id selects the active graph.
func (s *Session) Graph(id string) (flow.GraphDocument, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.graph(id)
	if !ok {
		return flow.GraphDocument{}, false
	}
	return g.Clone(), true
}

func (s *Session) graph(id string) (*flow.GraphDocument, bool) {
	if id == "" {
		return s.project.Active()
	}
	return s.project.Graph(id)
}

// ApplyNodeChanges runs one gesture batch through the mutation pipeline.
// Pending drop-to-group attaches are confirmed one at a time through
// Options.Confirmer; the call blocks until every prompt is answered.
func (s *Session) ApplyNodeChanges(ctx context.Context, graphID string, changes []mutate.NodeChange) (mutate.GraphResult, error) {
	return s.ApplyNodeChangesWith(ctx, graphID, changes, s.opts.Confirmer)
}

// ApplyNodeChangesWith is ApplyNodeChanges with a per-call confirmer, for
// callers that collect the answer with the request. A nil confirmer declines.
func (s *Session) ApplyNodeChangesWith(ctx context.Context, graphID string, changes []mutate.NodeChange, c mutate.Confirmer) (mutate.GraphResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return mutate.GraphResult{}, kv.ErrClosed
	}
	g, ok := s.graph(graphID)
	if !ok {
		return mutate.GraphResult{}, errors.New(errors.ErrCodeGraphNotFound, "graph %q not found", graphID)
	}

	res := mutate.ApplyToGraph(*g, changes, c)
	s.project.ReplaceGraph(res.Graph)

	hooks := observability.Engine()
	hooks.OnChangeBatch(ctx, len(changes), len(res.Moved), len(res.Removed))
	for range res.Attached {
		hooks.OnAttach(ctx, true)
	}
	for range res.Declined {
		hooks.OnAttach(ctx, false)
	}
	if res.LayoutChanged {
		hooks.OnLayout(ctx, res.Graph.ID)
	}

	if res.Changed() {
		s.dirty = true
		if settled(res.Graph) {
			s.scheduleFlush(s.deferredFlush)
		}
	}
	s.notify()
	return res, nil
}

// settled reports whether no node of g is mid-gesture.
func settled(g flow.GraphDocument) bool {
	for _, n := range g.Nodes {
		if n.Dragging || n.Resizing {
			return false
		}
	}
	return true
}

// Connect validates and adds an edge. Rejections are reported in the outcome
// and leave a hint.
func (s *Session) Connect(ctx context.Context, graphID string, c connect.Candidate) (command.Outcome, error) {
	return s.Dispatch(ctx, command.Connect{Graph: graphID, Candidate: c})
}

// Dispatch applies one command. A rejected command leaves the project
// untouched, sets the hint and returns a nil error; errors are reserved for a
// closed session.
func (s *Session) Dispatch(ctx context.Context, cmd command.Command) (command.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return command.Outcome{}, kv.ErrClosed
	}

	next, out := command.Reduce(s.project, cmd, command.Options{NewID: s.opts.NewID})
	observability.Engine().OnCommand(ctx, cmd.Type(), string(out.Reason))
	if !out.Applied {
		s.logger.Debug("command rejected", "command", cmd.Type(), "reason", out.Reason)
		s.setHint(out.Hint)
		return out, nil
	}

	s.project = next
	s.dirty = true
	s.scheduleFlush(s.deferredFlush)
	s.notify()
	return out, nil
}

// Replace swaps in a whole project, normalizing it the way a load does.
func (s *Session) Replace(ctx context.Context, p flow.ProjectSnapshot) (snapshot.Report, error) {
	data, err := snapshot.EncodeProject(p)
	if err != nil {
		return snapshot.Report{}, errors.Wrap(errors.ErrCodeInvalidSnapshot, err, "encode project")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return snapshot.Report{}, kv.ErrClosed
	}
	var rep snapshot.Report
	s.project, rep = snapshot.DecodeProject(data, snapshot.Options{NewID: s.opts.NewID})
	s.dirty = true
	s.scheduleFlush(s.deferredFlush)
	s.notify()
	return rep, nil
}

// Hint returns the current transient hint, or "".
func (s *Session) Hint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hint
}

// setHint must be called with mu held.
func (s *Session) setHint(msg string) {
	s.hint = msg
	s.hintSeq++
	seq := s.hintSeq
	s.scheduleHint(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.hintSeq == seq {
			s.hint = ""
		}
	})
}

// Dirty reports whether there are changes not yet written.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// LastError returns the error of the most recent deferred flush, if any.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Flush writes pending changes now.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush(ctx)
}

func (s *Session) deferredFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if err := s.flush(ctx); err != nil {
		s.logger.Error("deferred flush failed", "error", err)
	}
}

// flush must be called with mu held.
func (s *Session) flush(ctx context.Context) error {
	if !s.dirty {
		return nil
	}
	start := time.Now()
	data, err := snapshot.EncodeProject(s.project)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode project %s", s.id)
	}

	err = kv.RetryWithBackoff(ctx, func() error {
		return s.store.Set(ctx, s.opts.Keyer.ProjectKey(s.id), data)
	})
	if err == nil && s.opts.SaveLayout {
		var layout []byte
		if layout, err = snapshot.EncodeLayout(snapshot.CaptureLayout(s.project)); err == nil {
			err = kv.RetryWithBackoff(ctx, func() error {
				return s.store.Set(ctx, s.opts.Keyer.LayoutKey(s.id), layout)
			})
		}
	}
	observability.Store().OnFlush(ctx, len(data), time.Since(start), err)

	s.lastErr = err
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write project %s", s.id)
	}
	s.dirty = false
	s.logger.Debug("flushed project", "bytes", len(data), "duration", time.Since(start))
	return nil
}

// Subscribe registers fn to receive a copy of the project after every
// change. The returned function unregisters it.
func (s *Session) Subscribe(fn func(flow.ProjectSnapshot)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subSeq++
	id := s.subSeq
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// notify must be called with mu held. Subscribers must not call back into
// the session synchronously.
func (s *Session) notify() {
	if len(s.subs) == 0 {
		return
	}
	p := s.project.Clone()
	for _, fn := range s.subs {
		fn(p)
	}
}

// Close flushes pending changes and releases the session. Later mutations
// fail with kv.ErrClosed. The store is not closed.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.flush(ctx)
	s.closed = true
	s.subs = map[int]func(flow.ProjectSnapshot){}
	return err
}
