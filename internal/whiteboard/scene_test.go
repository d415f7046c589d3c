package whiteboard

import (
	"testing"

	"github.com/Roman-14/Concurrently-Accessible-Text-Editor-and-Whiteboard/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedEmit struct {
	kind string
	args []any
}

type fakeEmitter struct {
	events []recordedEmit
}

func (f *fakeEmitter) EmitDraw(id, d string) {
	f.events = append(f.events, recordedEmit{"draw", []any{id, d}})
}
func (f *fakeEmitter) EmitRemove(id string) {
	f.events = append(f.events, recordedEmit{"remove", []any{id}})
}
func (f *fakeEmitter) EmitEdit(id, d string) {
	f.events = append(f.events, recordedEmit{"edit", []any{id, d}})
}
func (f *fakeEmitter) EmitGroup(groupID string, childrenIDs []string) {
	f.events = append(f.events, recordedEmit{"group", []any{groupID, childrenIDs}})
}
func (f *fakeEmitter) EmitUngroup(groupID string) {
	f.events = append(f.events, recordedEmit{"ungroup", []any{groupID}})
}

func TestDrawIsIdempotent(t *testing.T) {
	emit := &fakeEmitter{}
	e := NewEngine(emit)

	e.Draw("draw-a-1", "M 0 0 L 1 1")
	e.Draw("draw-a-1", "M 9 9 L 9 9") // second draw with the same id is ignored

	el, ok := e.Element("draw-a-1")
	require.True(t, ok)
	assert.Equal(t, "M 0 0 L 1 1", el.D)
	require.Len(t, emit.events, 1)
}

func TestRemoveOfAbsentIDIsNoop(t *testing.T) {
	emit := &fakeEmitter{}
	e := NewEngine(emit)

	e.Remove("draw-never-existed")
	assert.Empty(t, emit.events)
}

func TestEditIgnoresAbsentElement(t *testing.T) {
	emit := &fakeEmitter{}
	e := NewEngine(emit)

	e.Edit("draw-nope", "M 1 1")
	assert.Empty(t, emit.events)
}

func TestGroupAndUngroupRoundTrip(t *testing.T) {
	emit := &fakeEmitter{}
	e := NewEngine(emit)
	e.Draw("p1", "M 0 0 L 1 1")
	e.Draw("p2", "M 2 2 L 3 3")
	emit.events = nil

	e.Group("g1", []string{"p1", "p2"})

	snap := e.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "g1", snap[0].ID)
	assert.Equal(t, KindGroup, snap[0].Kind)
	assert.Equal(t, []string{"p1", "p2"}, snap[0].Children)

	e.Ungroup("g1")
	snap = e.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "p1", snap[0].ID)
	assert.Equal(t, "p2", snap[1].ID)

	_, stillExists := e.Element("g1")
	assert.False(t, stillExists)
}

func TestGroupIsIdempotent(t *testing.T) {
	emit := &fakeEmitter{}
	e := NewEngine(emit)
	e.Draw("p1", "M 0 0 L 1 1")
	e.Draw("p2", "M 2 2 L 3 3")

	e.Group("g1", []string{"p1", "p2"})
	before := len(e.Snapshot())
	e.Group("g1", []string{"p1", "p2"})

	assert.Equal(t, before, len(e.Snapshot()))
}

func TestRemoveStripsDanglingChildFromGroup(t *testing.T) {
	emit := &fakeEmitter{}
	e := NewEngine(emit)
	e.Draw("p1", "M 0 0 L 1 1")
	e.Draw("p2", "M 2 2 L 3 3")
	e.Group("g1", []string{"p1", "p2"})

	e.Remove("p1")

	el, ok := e.Element("g1")
	require.True(t, ok)
	assert.Equal(t, []string{"p2"}, el.Children)
}

func TestRemoveOfGroupAlsoRemovesItsChildren(t *testing.T) {
	emit := &fakeEmitter{}
	e := NewEngine(emit)
	e.Draw("p1", "M 0 0 L 1 1")
	e.Draw("p2", "M 2 2 L 3 3")
	e.Group("g1", []string{"p1", "p2"})

	e.Remove("g1")

	_, ok := e.Element("g1")
	assert.False(t, ok)
	_, ok = e.Element("p1")
	assert.False(t, ok, "removing a group must remove its children, not just the group itself")
	_, ok = e.Element("p2")
	assert.False(t, ok)
	assert.Empty(t, e.Snapshot())
}

func TestTranslateMovesEveryVertexOfAGroup(t *testing.T) {
	emit := &fakeEmitter{}
	e := NewEngine(emit)
	e.Draw("p1", "M 0 0 L 1 1")
	e.Draw("p2", "M 2 2 L 3 3")
	e.Group("g1", []string{"p1", "p2"})

	e.Translate("g1", 10, -5)
	e.EmitEditsFor("g1")

	p1, _ := e.Element("p1")
	p2, _ := e.Element("p2")
	assert.Equal(t, "M 10 -5 L 11 -4", p1.D)
	assert.Equal(t, "M 12 -3 L 13 -2", p2.D)

	var editedIDs []string
	for _, ev := range emit.events {
		if ev.kind == "edit" {
			editedIDs = append(editedIDs, ev.args[0].(string))
		}
	}
	assert.ElementsMatch(t, []string{"p1", "p2"}, editedIDs)
}

func TestHitTestPrefersTopmostElement(t *testing.T) {
	emit := &fakeEmitter{}
	e := NewEngine(emit)
	e.Draw("lower", "M 0 0 L 10 10")
	e.Draw("upper", "M 0 0 L 10 10")

	id, ok := e.HitTest(geometry.Point{X: 5, Y: 5})
	require.True(t, ok)
	assert.Equal(t, "upper", id)

	_, ok = e.HitTest(geometry.Point{X: 100, Y: 100})
	assert.False(t, ok)
}

// Scenario 6 from the end-to-end walkthrough: a single diagonal path is
// erased by a crossing stroke.
func TestEraserRemovesCrossingPath(t *testing.T) {
	emit := &fakeEmitter{}
	e := NewEngine(emit)
	e.Draw("draw-x-1", "M 0 0 L 10 10")
	emit.events = nil

	e.Erase(geometry.Point{X: 0, Y: 10}, geometry.Point{X: 10, Y: 0})

	require.Len(t, emit.events, 1)
	assert.Equal(t, "remove", emit.events[0].kind)
	assert.Equal(t, "draw-x-1", emit.events[0].args[0])

	_, exists := e.Element("draw-x-1")
	assert.False(t, exists)
}

func TestEraserLeavesNonCrossingPathAlone(t *testing.T) {
	emit := &fakeEmitter{}
	e := NewEngine(emit)
	e.Draw("draw-x-1", "M 0 0 L 10 10")
	emit.events = nil

	e.Erase(geometry.Point{X: 100, Y: 100}, geometry.Point{X: 200, Y: 200})

	assert.Empty(t, emit.events)
	_, exists := e.Element("draw-x-1")
	assert.True(t, exists)
}

func TestEraserRemovesOnlyTheCrossingChildOfAGroup(t *testing.T) {
	emit := &fakeEmitter{}
	e := NewEngine(emit)
	e.Draw("diag", "M 0 0 L 10 10")
	e.Draw("faraway", "M 100 100 L 110 110")
	e.Group("g1", []string{"diag", "faraway"})
	emit.events = nil

	e.Erase(geometry.Point{X: 0, Y: 10}, geometry.Point{X: 10, Y: 0})

	require.Len(t, emit.events, 1)
	assert.Equal(t, "diag", emit.events[0].args[0])

	el, ok := e.Element("g1")
	require.True(t, ok)
	assert.Equal(t, []string{"faraway"}, el.Children)
}
