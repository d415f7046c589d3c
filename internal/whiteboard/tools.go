package whiteboard

import (
	"fmt"
	"strings"

	"github.com/Roman-14/Concurrently-Accessible-Text-Editor-and-Whiteboard/internal/geometry"
)

// PointerEvent is a single down/move/up sample, already transformed into
// drawing-area coordinates. Additive carries the shift/ctrl modifier the
// selector uses to grow a multi-selection instead of replacing it.
type PointerEvent struct {
	Point    geometry.Point
	Additive bool
}

// Tool is the interface every whiteboard tool implements. Tool state is
// local only and is never sent over the wire; only the scene mutations a
// tool eventually performs are networked.
type Tool interface {
	Down(e PointerEvent)
	Move(e PointerEvent)
	Up(e PointerEvent)
}

// Pen draws a freehand polyline, appending a vertex per move and
// publishing the finished path on pointer-up.
type Pen struct {
	engine *Engine
	active bool
	d      strings.Builder
}

func NewPen(engine *Engine) *Pen {
	return &Pen{engine: engine}
}

func (p *Pen) Down(e PointerEvent) {
	p.active = true
	p.d.Reset()
	fmt.Fprintf(&p.d, "M %g %g", e.Point.X, e.Point.Y)
}

func (p *Pen) Move(e PointerEvent) {
	if !p.active {
		return
	}
	fmt.Fprintf(&p.d, " L %g %g", e.Point.X, e.Point.Y)
}

func (p *Pen) Up(e PointerEvent) {
	if !p.active {
		return
	}
	p.active = false
	p.engine.Draw(p.engine.NextID(), p.d.String())
}

// Shape drags out a regular n-gon anchored at the pointer-down point: the
// first move (or the pointer-up, if there was no move) publishes it with
// draw, and every later move and the pointer-up publish it again with edit.
type Shape struct {
	engine *Engine
	n      int
	active bool
	anchor geometry.Point
	id     string
}

// NewShape requires n >= 3; smaller values are clamped by RegularPolygon.
func NewShape(engine *Engine, n int) *Shape {
	return &Shape{engine: engine, n: n}
}

func (s *Shape) Down(e PointerEvent) {
	s.active = true
	s.anchor = e.Point
	s.id = s.engine.NextID()
}

func (s *Shape) Move(e PointerEvent) {
	if !s.active {
		return
	}
	s.redraw(e.Point)
}

func (s *Shape) Up(e PointerEvent) {
	if !s.active {
		return
	}
	s.active = false
	s.redraw(e.Point)
}

// redraw publishes the current drag's polygon, drawing it the first time
// and editing it on every subsequent sample so it tracks the pointer live.
func (s *Shape) redraw(current geometry.Point) {
	d := polygonFromDrag(s.n, s.anchor, current)
	if _, exists := s.engine.Element(s.id); exists {
		s.engine.Edit(s.id, d)
		return
	}
	s.engine.Draw(s.id, d)
}

// Eraser removes whatever path crosses the segment traced between
// consecutive move samples.
type Eraser struct {
	engine *Engine
	active bool
	last   geometry.Point
}

func NewEraser(engine *Engine) *Eraser {
	return &Eraser{engine: engine}
}

func (er *Eraser) Down(e PointerEvent) {
	er.active = true
	er.last = e.Point
}

func (er *Eraser) Move(e PointerEvent) {
	if !er.active {
		return
	}
	er.engine.Erase(er.last, e.Point)
	er.last = e.Point
}

func (er *Eraser) Up(e PointerEvent) {
	er.active = false
}

// Selector supports single and multi-selection by click, drag-translation
// of the current selection, and the toolbar group/ungroup action.
type Selector struct {
	engine   *Engine
	selected []string
	dragging bool
	last     geometry.Point
}

func NewSelector(engine *Engine) *Selector {
	return &Selector{engine: engine}
}

func (s *Selector) Down(e PointerEvent) {
	id, ok := s.engine.HitTest(e.Point)
	if !ok {
		if !e.Additive {
			s.selected = nil
		}
		return
	}

	if e.Additive {
		if idx := indexOfOrder(s.selected, id); idx >= 0 {
			s.selected = append(s.selected[:idx], s.selected[idx+1:]...)
		} else {
			s.selected = append(s.selected, id)
		}
	} else {
		s.selected = []string{id}
	}
	s.dragging = true
	s.last = e.Point
}

func (s *Selector) Move(e PointerEvent) {
	if !s.dragging || len(s.selected) == 0 {
		return
	}
	dx := e.Point.X - s.last.X
	dy := e.Point.Y - s.last.Y
	s.last = e.Point
	for _, id := range s.selected {
		s.engine.Translate(id, dx, dy)
	}
}

func (s *Selector) Up(e PointerEvent) {
	if !s.dragging {
		return
	}
	s.dragging = false
	for _, id := range s.selected {
		s.engine.EmitEditsFor(id)
	}
}

// Selected returns the current selection in click order.
func (s *Selector) Selected() []string {
	return append([]string(nil), s.selected...)
}

// GroupOrUngroup is the selector's toolbar action: it groups two or more
// selected elements under groupID, or ungroups a lone selected group, and
// clears the selection either way. groupID is ignored (and may be empty)
// when ungrouping.
func (s *Selector) GroupOrUngroup(groupID string) {
	switch {
	case len(s.selected) >= 2:
		s.engine.Group(groupID, s.selected)
	case len(s.selected) == 1:
		if el, ok := s.engine.Element(s.selected[0]); ok && el.Kind == KindGroup {
			s.engine.Ungroup(el.ID)
		}
	}
	s.selected = nil
}
