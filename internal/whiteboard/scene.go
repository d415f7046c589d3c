// Package whiteboard implements the replicated vector-drawing scene graph:
// a flat table of paths and groups addressed by globally unique id, kept
// consistent across peers by making every mutation idempotent rather than
// by queuing and rebasing the way the text engine does.
package whiteboard

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/Roman-14/Concurrently-Accessible-Text-Editor-and-Whiteboard/internal/geometry"
)

// ElementKind distinguishes a stroked path from a group of elements.
type ElementKind int

const (
	KindPath ElementKind = iota
	KindGroup
)

// Element is one node of the scene graph. D is meaningful only for
// KindPath; Children only for KindGroup. Children are stored by id and
// resolved against the owning Engine's flat table, so an element never
// holds a pointer to its parent.
type Element struct {
	ID       string
	Kind     ElementKind
	D        string
	Children []string
}

// Emitter is the transport-facing half of the whiteboard engine: every
// locally-initiated scene mutation is pushed out through it after being
// applied.
type Emitter interface {
	EmitDraw(id, d string)
	EmitRemove(id string)
	EmitEdit(id, d string)
	EmitGroup(groupID string, childrenIDs []string)
	EmitUngroup(groupID string)
}

// Engine owns the scene graph and the local tool id generator. Unlike
// TextEngine there is no pending queue: every operation here is keyed by
// a globally unique id and idempotent, so remote and local mutations can
// be applied directly without a rebase step.
type Engine struct {
	mu       sync.Mutex
	emitter  Emitter
	logger   *slog.Logger
	ids      *idGenerator
	elements map[string]*Element
	order    []string // top-level ids, in display order
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the engine's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func NewEngine(emitter Emitter, opts ...Option) *Engine {
	e := &Engine{
		emitter:  emitter,
		logger:   slog.Default(),
		ids:      newIDGenerator(),
		elements: make(map[string]*Element),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NextID hands the caller a fresh element id, for tools that must name a
// new path or group before emitting it.
func (e *Engine) NextID() string {
	return e.ids.next()
}

// Draw is the local-initiated counterpart of HandleDraw.
func (e *Engine) Draw(id, d string) {
	e.mu.Lock()
	applied := e.applyDraw(id, d)
	e.mu.Unlock()
	if applied {
		e.emitter.EmitDraw(id, d)
	}
}

func (e *Engine) HandleDraw(id, d string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyDraw(id, d)
}

func (e *Engine) applyDraw(id, d string) bool {
	if _, exists := e.elements[id]; exists {
		return false
	}
	e.elements[id] = &Element{ID: id, Kind: KindPath, D: d}
	e.order = append(e.order, id)
	return true
}

// Remove is the local-initiated counterpart of HandleRemove.
func (e *Engine) Remove(id string) {
	e.mu.Lock()
	applied := e.applyRemove(id)
	e.mu.Unlock()
	if applied {
		e.emitter.EmitRemove(id)
	}
}

func (e *Engine) HandleRemove(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyRemove(id)
}

func (e *Engine) applyRemove(id string) bool {
	el, exists := e.elements[id]
	if !exists {
		return false
	}
	if el.Kind == KindGroup {
		for _, cid := range el.Children {
			e.applyRemove(cid)
		}
	}
	delete(e.elements, id)
	e.order = removeFromOrder(e.order, id)
	for _, other := range e.elements {
		if other.Kind == KindGroup {
			other.Children = removeFromOrder(other.Children, id)
		}
	}
	return true
}

// Edit is the local-initiated counterpart of HandleEdit.
func (e *Engine) Edit(id, d string) {
	e.mu.Lock()
	applied := e.applyEdit(id, d)
	e.mu.Unlock()
	if applied {
		e.emitter.EmitEdit(id, d)
	}
}

func (e *Engine) HandleEdit(id, d string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyEdit(id, d)
}

func (e *Engine) applyEdit(id, d string) bool {
	el, ok := e.elements[id]
	if !ok || el.Kind != KindPath {
		return false
	}
	el.D = d
	return true
}

// Group is the local-initiated counterpart of HandleGroup.
func (e *Engine) Group(groupID string, childrenIDs []string) {
	e.mu.Lock()
	applied := e.applyGroup(groupID, childrenIDs)
	e.mu.Unlock()
	if applied {
		e.emitter.EmitGroup(groupID, childrenIDs)
	}
}

func (e *Engine) HandleGroup(groupID string, childrenIDs []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyGroup(groupID, childrenIDs)
}

func (e *Engine) applyGroup(groupID string, childrenIDs []string) bool {
	if _, exists := e.elements[groupID]; exists {
		return false
	}
	var children []string
	for _, cid := range childrenIDs {
		if _, ok := e.elements[cid]; ok {
			children = append(children, cid)
		}
	}
	if len(children) == 0 {
		return false
	}

	remove := make(map[string]bool, len(children))
	for _, cid := range children {
		remove[cid] = true
	}
	kept := e.order[:0:0]
	for _, id := range e.order {
		if !remove[id] {
			kept = append(kept, id)
		}
	}
	e.order = append(kept, groupID)
	e.elements[groupID] = &Element{ID: groupID, Kind: KindGroup, Children: children}
	return true
}

// Ungroup is the local-initiated counterpart of HandleUngroup.
func (e *Engine) Ungroup(groupID string) {
	e.mu.Lock()
	applied := e.applyUngroup(groupID)
	e.mu.Unlock()
	if applied {
		e.emitter.EmitUngroup(groupID)
	}
}

func (e *Engine) HandleUngroup(groupID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.applyUngroup(groupID)
}

func (e *Engine) applyUngroup(groupID string) bool {
	el, ok := e.elements[groupID]
	if !ok || el.Kind != KindGroup {
		return false
	}
	idx := indexOfOrder(e.order, groupID)
	if idx < 0 {
		return false
	}
	newOrder := make([]string, 0, len(e.order)-1+len(el.Children))
	newOrder = append(newOrder, e.order[:idx]...)
	newOrder = append(newOrder, el.Children...)
	newOrder = append(newOrder, e.order[idx+1:]...)
	e.order = newOrder
	delete(e.elements, groupID)
	return true
}

// Element returns a shallow copy of the named element.
func (e *Engine) Element(id string) (Element, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	el, ok := e.elements[id]
	if !ok {
		return Element{}, false
	}
	return *el, true
}

// Snapshot returns shallow copies of the top-level elements in display
// order. Group children are listed by id and are not resolved; Paths
// flattens groups into their leaf paths.
func (e *Engine) Snapshot() []Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Element, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, *e.elements[id])
	}
	return out
}

func removeFromOrder(order []string, id string) []string {
	idx := indexOfOrder(order, id)
	if idx < 0 {
		return order
	}
	return append(order[:idx], order[idx+1:]...)
}

func indexOfOrder(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

// parseVertices reads the vertices out of a "M x y L x y L x y ..." path
// attribute. Malformed trailing tokens are ignored rather than rejected,
// matching the tolerant event handling elsewhere in the engine.
func parseVertices(d string) []geometry.Point {
	fields := strings.Fields(d)
	var pts []geometry.Point
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "M", "L":
			if i+2 >= len(fields) {
				return pts
			}
			x, errX := strconv.ParseFloat(fields[i+1], 64)
			y, errY := strconv.ParseFloat(fields[i+2], 64)
			if errX != nil || errY != nil {
				return pts
			}
			pts = append(pts, geometry.Point{X: x, Y: y})
			i += 2
		}
	}
	return pts
}

func formatPath(pts []geometry.Point) string {
	var b strings.Builder
	for i, p := range pts {
		if i == 0 {
			fmt.Fprintf(&b, "M %g %g", p.X, p.Y)
		} else {
			fmt.Fprintf(&b, " L %g %g", p.X, p.Y)
		}
	}
	return b.String()
}

func boundingBox(pts []geometry.Point) (lo, hi geometry.Point) {
	lo, hi = pts[0], pts[0]
	for _, p := range pts[1:] {
		if p.X < lo.X {
			lo.X = p.X
		}
		if p.Y < lo.Y {
			lo.Y = p.Y
		}
		if p.X > hi.X {
			hi.X = p.X
		}
		if p.Y > hi.Y {
			hi.Y = p.Y
		}
	}
	return lo, hi
}

// elementVertices returns every vertex that makes up id, recursing into
// group children, for bounding-box and hit-test purposes.
func (e *Engine) elementVertices(el *Element) []geometry.Point {
	switch el.Kind {
	case KindPath:
		return parseVertices(el.D)
	case KindGroup:
		var pts []geometry.Point
		for _, cid := range el.Children {
			if child, ok := e.elements[cid]; ok {
				pts = append(pts, e.elementVertices(child)...)
			}
		}
		return pts
	}
	return nil
}

// HitTest returns the topmost top-level element whose bounding box
// contains pt, if any.
func (e *Engine) HitTest(pt geometry.Point) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(e.order) - 1; i >= 0; i-- {
		id := e.order[i]
		pts := e.elementVertices(e.elements[id])
		if len(pts) == 0 {
			continue
		}
		lo, hi := boundingBox(pts)
		if geometry.PointInRect(pt, lo, hi) {
			return id, true
		}
	}
	return "", false
}

// Translate shifts every vertex of id (or, if id names a group, every
// vertex of each descendant path) by (dx, dy), without emitting. Emission
// happens once per affected path, batched at the end of a drag — see
// EmitEditsFor.
func (e *Engine) Translate(id string, dx, dy float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.translateLocked(id, dx, dy)
}

func (e *Engine) translateLocked(id string, dx, dy float64) {
	el, ok := e.elements[id]
	if !ok {
		return
	}
	switch el.Kind {
	case KindPath:
		pts := parseVertices(el.D)
		for i := range pts {
			pts[i].X += dx
			pts[i].Y += dy
		}
		el.D = formatPath(pts)
	case KindGroup:
		for _, cid := range el.Children {
			e.translateLocked(cid, dx, dy)
		}
	}
}

// Paths flattens the scene graph into every leaf path, in display order,
// recursing into groups. It is the read model exporters and other
// grouping-agnostic consumers use.
func (e *Engine) Paths() []Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []Element
	for _, id := range e.order {
		out = append(out, e.leafPaths(id)...)
	}
	return out
}

// ParsePath parses a path's "M x y L x y ..." attribute into its vertices.
func ParsePath(d string) []geometry.Point {
	return parseVertices(d)
}

// EmitEditsFor emits edit(id, d) for id, or for every descendant path of
// id if it names a group, reflecting whatever Translate has accumulated.
func (e *Engine) EmitEditsFor(id string) {
	e.mu.Lock()
	paths := e.leafPaths(id)
	e.mu.Unlock()
	for _, p := range paths {
		e.emitter.EmitEdit(p.ID, p.D)
	}
}

func (e *Engine) leafPaths(id string) []Element {
	el, ok := e.elements[id]
	if !ok {
		return nil
	}
	if el.Kind == KindPath {
		return []Element{*el}
	}
	var out []Element
	for _, cid := range el.Children {
		out = append(out, e.leafPaths(cid)...)
	}
	return out
}

// pathCrossesSegment reports whether any edge of the polyline pts crosses
// segment a-b.
func pathCrossesSegment(pts []geometry.Point, a, b geometry.Point) bool {
	for i := 0; i+1 < len(pts); i++ {
		if geometry.SegmentsIntersect(pts[i], pts[i+1], a, b) {
			return true
		}
	}
	return false
}

// Erase walks every top-level element whose bounding box the segment a-b
// crosses (or whose box contains an endpoint of it) and recursively
// removes any descendant path with an edge crossing a-b.
func (e *Engine) Erase(a, b geometry.Point) {
	e.mu.Lock()
	var removed []string
	for _, id := range append([]string(nil), e.order...) {
		removed = append(removed, e.eraseElement(id, a, b)...)
	}
	e.mu.Unlock()
	for _, id := range removed {
		e.emitter.EmitRemove(id)
	}
}

func (e *Engine) eraseElement(id string, a, b geometry.Point) []string {
	el, ok := e.elements[id]
	if !ok {
		return nil
	}
	pts := e.elementVertices(el)
	if len(pts) == 0 {
		return nil
	}
	lo, hi := boundingBox(pts)
	if !geometry.SegmentIntersectsRect(a, b, lo, hi) &&
		!geometry.PointInRect(a, lo, hi) && !geometry.PointInRect(b, lo, hi) {
		return nil
	}

	switch el.Kind {
	case KindPath:
		if pathCrossesSegment(pts, a, b) {
			e.applyRemove(id)
			return []string{id}
		}
		return nil
	case KindGroup:
		var removed []string
		for _, cid := range append([]string(nil), el.Children...) {
			removed = append(removed, e.eraseElement(cid, a, b)...)
		}
		return removed
	}
	return nil
}
