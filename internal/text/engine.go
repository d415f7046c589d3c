package text

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Roman-14/Concurrently-Accessible-Text-Editor-and-Whiteboard/internal/colour"
)

// State is the engine's lifecycle state. There is no terminal
// state; a client's lifetime ends with process exit.
type State int

const (
	StateUninitialized State = iota
	StateConnected
)

var (
	// ErrOutOfBounds reports a precondition violation: a position or range
	// fell outside the current content. Treated as a soft assertion — see
	// Engine.Strict.
	ErrOutOfBounds = errors.New("text: position out of bounds")
	// ErrEchoMismatch reports that a server echo did not match the head of
	// the pending queue. The engine does not mutate further once this
	// is detected; callers should request a fresh snapshot.
	ErrEchoMismatch = errors.New("text: echo does not match pending head")
)

// Emitter is the outbound half of the text socket namespace. A
// transport adapter implements this to turn engine mutations into wire
// events.
type Emitter interface {
	EmitAddRegion(text string, position, lastModID int)
	EmitRemoveRegion(start, end, lastModID int)
	EmitAddProperty(start, end int, property string, flag *string, lastModID int)
	EmitRemoveProperty(start, end int, property string, lastModID int)
	EmitCursorMoved(position, lastModID int)
	EmitUpdateLastModID(lastModID int)
}

// Engine is the client-side concurrency control core for one shared text
// document. It is safe for concurrent use: the transport's
// read pump and the local UI thread may both drive it, even though the
// conceptual model is a single-threaded cooperative scheduler.
type Engine struct {
	mu sync.Mutex

	emitter Emitter
	logger  *slog.Logger

	// Strict turns precondition violations into panics instead of logged
	// no-ops, for development builds.
	Strict bool
	// OnChange is called after every locally observable state change, so a
	// caller can re-render. It runs outside any internal lock.
	OnChange func()

	state    State
	userID   int
	readOnly bool

	live   *replica
	shadow *replica

	pending []PendingOp

	lastModID int
	dirty     bool
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithReadOnly marks the engine read-only: all local mutation requests
// become no-ops.
func WithReadOnly() Option {
	return func(e *Engine) { e.readOnly = true }
}

// WithLogger overrides the engine's diagnostic logger (default:
// slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStrict enables Strict at construction time.
func WithStrict() Option {
	return func(e *Engine) { e.Strict = true }
}

// NewEngine creates an uninitialized engine. It becomes usable once
// HandleConnected delivers the server's initial snapshot.
func NewEngine(emitter Emitter, opts ...Option) *Engine {
	e := &Engine{
		emitter: emitter,
		logger:  slog.Default(),
		live:    newReplica(),
		shadow:  newReplica(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) ready() bool {
	return e.state == StateConnected && !e.readOnly
}

func (e *Engine) notify() {
	if e.OnChange != nil {
		e.OnChange()
	}
}

// violate reports a precondition violation per policy:
// logged and swallowed by default, fatal under Strict.
func (e *Engine) violate(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if e.Strict {
		panic("text: precondition violation: " + msg)
	}
	if e.logger != nil {
		e.logger.Warn("text: precondition violation", "detail", msg)
	}
	return fmt.Errorf("%w: %s", ErrOutOfBounds, msg)
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// UserID reports the server-assigned user id, valid once Connected.
func (e *Engine) UserID() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userID
}

// Render produces the current markup for the live replica.
func (e *Engine) Render() string {
	content, cursors, properties := e.Snapshot()
	return Render(content, cursors, properties)
}

// Snapshot returns the current live content, cursor table, and property
// table for rendering or inspection. The returned replica is a private
// copy safe to read without holding the engine's lock.
func (e *Engine) Snapshot() (content string, cursors map[int]Cursor, properties Properties) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cursors = make(map[int]Cursor, len(e.live.cursors))
	for id, c := range e.live.cursors {
		cursors[id] = *c
	}
	return e.live.String(), cursors, e.live.properties.clone()
}

// ---------------------------------------------------------------------------
// Public operations
// ---------------------------------------------------------------------------

// Insert appends text at position in the local replica, queues the
// corresponding pending op, and emits add_region.
func (e *Engine) Insert(text string, position int) error {
	e.mu.Lock()
	if !e.ready() {
		e.mu.Unlock()
		return nil
	}
	if position < 0 || position > len(e.live.content) {
		err := e.violate("insert position %d out of [0,%d]", position, len(e.live.content))
		e.mu.Unlock()
		return err
	}

	advance := -1
	if cur, ok := e.live.cursors[e.userID]; ok && cur.Position == position {
		advance = position + len([]rune(text))
	}

	e.pending = append(e.pending, PendingOp{Kind: OpInsert, Position: position, Text: text})
	actualAdd(e.live, text, position)
	if advance >= 0 {
		if cur, ok := e.live.cursors[e.userID]; ok {
			cur.Position = advance
		}
	}
	modID := e.lastModID
	e.dirty = false
	e.mu.Unlock()

	e.emitter.EmitAddRegion(text, position, modID)
	if advance >= 0 {
		// The cursor follows its own insert as a side effect, not a
		// second tracked operation: it rides along on the insert's
		// pending entry and echo instead of queuing and awaiting one
		// of its own.
		e.emitter.EmitCursorMoved(advance, modID)
	}
	e.notify()
	return nil
}

// Remove deletes [start, end) from the local replica, queues the
// corresponding pending op, and emits remove_region.
func (e *Engine) Remove(start, end int) error {
	e.mu.Lock()
	if !e.ready() {
		e.mu.Unlock()
		return nil
	}
	if start < 0 || end < start || end > len(e.live.content) {
		err := e.violate("remove [%d,%d) out of [0,%d]", start, end, len(e.live.content))
		e.mu.Unlock()
		return err
	}

	e.pending = append(e.pending, PendingOp{Kind: OpRemove, Start: start, End: end})
	actualRemove(e.live, start, end)
	modID := e.lastModID
	e.dirty = false
	e.mu.Unlock()

	e.emitter.EmitRemoveRegion(start, end, modID)
	e.notify()
	return nil
}

// MoveCursor updates the local cursor's position, queues the corresponding
// pending op, and emits cursor_moved.
func (e *Engine) MoveCursor(position int) error {
	e.mu.Lock()
	if !e.ready() {
		e.mu.Unlock()
		return nil
	}
	if position < 0 || position > len(e.live.content) {
		err := e.violate("cursor position %d out of [0,%d]", position, len(e.live.content))
		e.mu.Unlock()
		return err
	}

	e.pending = append(e.pending, PendingOp{Kind: OpCursor, Position: position})
	if cur, ok := e.live.cursors[e.userID]; ok {
		cur.Position = position
	} else {
		e.live.cursors[e.userID] = &Cursor{Position: position, Username: colour.Me, Colour: colour.Local}
	}
	modID := e.lastModID
	e.dirty = false
	e.mu.Unlock()

	e.emitter.EmitCursorMoved(position, modID)
	e.notify()
	return nil
}

// ToggleProperty adds or removes a styling directive on [start, end): if a
// single existing range of the same (property, flag) already fully covers
// the span, the action is remove; otherwise it is add.
func (e *Engine) ToggleProperty(start, end int, property string, flag *string) error {
	e.mu.Lock()
	if !e.ready() {
		e.mu.Unlock()
		return nil
	}
	if start < 0 || end < start || end > len(e.live.content) {
		err := e.violate("property range [%d,%d) out of [0,%d]", start, end, len(e.live.content))
		e.mu.Unlock()
		return err
	}

	remove := coversFully(e.live, start, end, property, flag)
	var op PendingOp
	if remove {
		op = PendingOp{Kind: OpRemoveProperty, Start: start, End: end, Property: property}
		actualRemoveProperty(e.live, start, end, property)
	} else {
		op = PendingOp{Kind: OpAddProperty, Start: start, End: end, Property: property, Flag: flag}
		actualAddProperty(e.live, start, end, property, flag)
	}
	e.pending = append(e.pending, op)
	modID := e.lastModID
	e.dirty = false
	e.mu.Unlock()

	if remove {
		e.emitter.EmitRemoveProperty(start, end, property, modID)
	} else {
		e.emitter.EmitAddProperty(start, end, property, flag, modID)
	}
	e.notify()
	return nil
}

// coversFully reports whether a single range of (property, flag) already
// spans all of [start, end).
func coversFully(r *replica, start, end int, name string, flag *string) bool {
	prop, ok := r.properties[name]
	if !ok || prop.flagged != (flag != nil) {
		return false
	}
	for _, rg := range prop.buckets[flagKey(flag)] {
		if rg.Start <= start && rg.End >= end {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Inbound events
// ---------------------------------------------------------------------------

// HandleConnected initializes the engine from the server's snapshot,
// transitioning it from Uninitialized to Connected.
func (e *Engine) HandleConnected(userID int, content string, modID int) {
	e.mu.Lock()
	e.userID = userID
	e.state = StateConnected
	e.live = newReplica()
	e.shadow = newReplica()
	e.live.content = []rune(content)
	e.shadow.content = append([]rune(nil), e.live.content...)
	e.pending = nil
	e.lastModID = modID
	e.dirty = false
	if !e.readOnly {
		cur := &Cursor{Position: 0, Username: colour.Me, Colour: colour.Local}
		e.live.cursors[userID] = cur
		shadowCur := *cur
		e.shadow.cursors[userID] = &shadowCur
	}
	e.mu.Unlock()
	e.notify()
}

// HandleUserDisconnected tears down a departed user's cursor in both
// replicas without resetting the rest of the engine.
func (e *Engine) HandleUserDisconnected(userID int) {
	e.mu.Lock()
	delete(e.live.cursors, userID)
	delete(e.shadow.cursors, userID)
	e.mu.Unlock()
	e.notify()
}

// HandlePing piggybacks a last_mod_id heartbeat if the engine has advanced
// its reference without emitting a mutation since the last one.
func (e *Engine) HandlePing() {
	e.mu.Lock()
	dirty := e.dirty
	modID := e.lastModID
	e.dirty = false
	e.mu.Unlock()
	if dirty {
		e.emitter.EmitUpdateLastModID(modID)
	}
}

// HandleAddRegion applies a remote or echoed insertion.
func (e *Engine) HandleAddRegion(text string, position, userID, modID int) error {
	return e.handleMutation(userID, modID, PendingOp{Kind: OpInsert, Position: position, Text: text})
}

// HandleRemoveRegion applies a remote or echoed deletion.
func (e *Engine) HandleRemoveRegion(start, end, userID, modID int) error {
	return e.handleMutation(userID, modID, PendingOp{Kind: OpRemove, Start: start, End: end})
}

// HandleAddProperty applies a remote or echoed property addition.
func (e *Engine) HandleAddProperty(start, end int, property string, flag *string, userID, modID int) error {
	return e.handleMutation(userID, modID, PendingOp{Kind: OpAddProperty, Start: start, End: end, Property: property, Flag: flag})
}

// HandleRemoveProperty applies a remote or echoed property removal.
func (e *Engine) HandleRemoveProperty(start, end int, property string, userID, modID int) error {
	return e.handleMutation(userID, modID, PendingOp{Kind: OpRemoveProperty, Start: start, End: end, Property: property})
}

// handleMutation is the shared shape of every inbound mutation event: bump
// last_mod_id, apply authoritatively to the shadow, then either pop an
// echo of our own op or discard-and-replay against a remote one.
func (e *Engine) handleMutation(userID, modID int, op PendingOp) error {
	e.mu.Lock()
	e.lastModID = modID
	e.dirty = true

	applyPendingOp(e.shadow, userID, op)

	var err error
	if userID == e.userID {
		if len(e.pending) == 0 || !e.pending[0].matches(op) {
			err = ErrEchoMismatch
			e.logger.Error("text: echo mismatch", "kind", op.Kind)
		} else {
			e.pending = e.pending[1:]
		}
	} else {
		e.replayLocked(op)
	}
	e.mu.Unlock()
	e.notify()
	return err
}

// HandleCursorMoved applies a remote or echoed cursor move. It is
// handled separately from handleMutation because a newly-seen remote user
// needs its username/colour assigned before the generic
// kind-dispatch in applyPendingOp, which only knows positions.
func (e *Engine) HandleCursorMoved(position, userID int, username string, modID int) error {
	e.mu.Lock()
	e.lastModID = modID
	e.dirty = true

	if userID == e.userID {
		op := PendingOp{Kind: OpCursor, Position: position}
		applyPendingOp(e.shadow, userID, op)
		var err error
		if len(e.pending) == 0 || !e.pending[0].matches(op) {
			err = ErrEchoMismatch
			e.logger.Error("text: echo mismatch", "kind", "cursor")
		} else {
			e.pending = e.pending[1:]
		}
		e.mu.Unlock()
		e.notify()
		return err
	}

	if cur, ok := e.shadow.cursors[userID]; ok {
		cur.Position = position
		cur.Username = username
	} else {
		e.shadow.cursors[userID] = &Cursor{
			Position: position,
			Username: username,
			Colour:   colour.Assign(e.shadow.coloursInUse()),
		}
	}
	e.replayLocked(PendingOp{Kind: OpCursor})
	e.mu.Unlock()
	e.notify()
	return nil
}

// replayLocked rebuilds live from shadow and replays the pending queue
// with coordinates rebased against remote. Caller must hold mu.
func (e *Engine) replayLocked(remote PendingOp) {
	e.live = e.shadow.clone()
	for i, op := range e.pending {
		rop := rebase(op, remote)
		e.pending[i] = rop
		applyPendingOp(e.live, e.userID, rop)
	}
}
