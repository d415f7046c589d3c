package text

import (
	"testing"

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

func (f *fakeEmitter) EmitAddRegion(text string, position, lastModID int) {
	f.events = append(f.events, recordedEmit{"add_region", []any{text, position, lastModID}})
}
func (f *fakeEmitter) EmitRemoveRegion(start, end, lastModID int) {
	f.events = append(f.events, recordedEmit{"remove_region", []any{start, end, lastModID}})
}
func (f *fakeEmitter) EmitAddProperty(start, end int, property string, flag *string, lastModID int) {
	f.events = append(f.events, recordedEmit{"add_property", []any{start, end, property, flag, lastModID}})
}
func (f *fakeEmitter) EmitRemoveProperty(start, end int, property string, lastModID int) {
	f.events = append(f.events, recordedEmit{"remove_property", []any{start, end, property, lastModID}})
}
func (f *fakeEmitter) EmitCursorMoved(position, lastModID int) {
	f.events = append(f.events, recordedEmit{"cursor_moved", []any{position, lastModID}})
}
func (f *fakeEmitter) EmitUpdateLastModID(lastModID int) {
	f.events = append(f.events, recordedEmit{"update_last_mod_id", []any{lastModID}})
}

func newConnectedEngine(t *testing.T, content string) (*Engine, *fakeEmitter) {
	t.Helper()
	emit := &fakeEmitter{}
	e := NewEngine(emit)
	e.HandleConnected(1, content, 0)
	return e, emit
}

// Scenario 1: concurrent insert with local pending insert.
func TestScenarioConcurrentInsertWithLocalPending(t *testing.T) {
	e, _ := newConnectedEngine(t, "abc")
	require.NoError(t, e.MoveCursor(3))

	require.NoError(t, e.Insert("X", 1))
	assert.Equal(t, "aXbc", string(e.live.content))
	require.Len(t, e.pending, 2) // cursor(3) + insert(X,1)

	err := e.HandleAddRegion("YY", 0, 2, 17)
	require.NoError(t, err)

	assert.Equal(t, "YYabc", string(e.shadow.content))
	assert.Equal(t, "YYaXbc", string(e.live.content))

	require.Len(t, e.pending, 2)
	assert.Equal(t, OpInsert, e.pending[1].Kind)
	assert.Equal(t, 3, e.pending[1].Position)

	cur := e.live.cursors[1]
	require.NotNil(t, cur)
	assert.Equal(t, 6, cur.Position)
}

// Scenario 2: concurrent delete crossing local cursor.
func TestScenarioConcurrentDeleteCrossingCursor(t *testing.T) {
	e, _ := newConnectedEngine(t, "abcdef")
	require.NoError(t, e.MoveCursor(4))

	err := e.HandleRemoveRegion(1, 3, 2, 5)
	require.NoError(t, err)

	assert.Equal(t, "adef", string(e.live.content))
	cur := e.live.cursors[1]
	require.NotNil(t, cur)
	assert.Equal(t, 2, cur.Position)
}

// Scenario 3: echo of own op.
func TestScenarioEchoOfOwnOp(t *testing.T) {
	e, _ := newConnectedEngine(t, "")
	require.NoError(t, e.Insert("Z", 0))
	require.Len(t, e.pending, 1)

	err := e.HandleAddRegion("Z", 0, 1, 1)
	require.NoError(t, err)

	assert.Empty(t, e.pending)
	assert.Equal(t, "Z", string(e.shadow.content))
	assert.Equal(t, "Z", string(e.live.content))
}

// Scenario 4: property shape lock.
func TestScenarioPropertyShapeLock(t *testing.T) {
	e, _ := newConnectedEngine(t, "abcdefg")
	flagLeft := "align=left"
	require.NoError(t, e.ToggleProperty(0, 3, "p", &flagLeft))

	prop := e.live.properties["p"]
	require.NotNil(t, prop)
	assert.True(t, prop.flagged)

	// A subsequent flagless add for the same property name is rejected.
	require.NoError(t, e.ToggleProperty(5, 7, "p", nil))
	assert.True(t, e.live.properties["p"].flagged)
	_, hasFlaglessBucket := e.live.properties["p"].buckets[noFlag]
	assert.False(t, hasFlaglessBucket)
}

func TestInsertAdvancesCursorAtInsertPoint(t *testing.T) {
	e, emit := newConnectedEngine(t, "abc")
	require.NoError(t, e.MoveCursor(1))
	emit.events = nil

	require.NoError(t, e.Insert("XY", 1))

	cur := e.live.cursors[1]
	require.NotNil(t, cur)
	assert.Equal(t, 3, cur.Position)

	var sawCursorMove bool
	for _, ev := range emit.events {
		if ev.kind == "cursor_moved" {
			sawCursorMove = true
		}
	}
	assert.True(t, sawCursorMove, "expected insert at cursor to issue a cursor move")
}

func TestReadOnlyEngineIgnoresLocalMutations(t *testing.T) {
	emit := &fakeEmitter{}
	e := NewEngine(emit, WithReadOnly())
	e.HandleConnected(1, "abc", 0)

	require.NoError(t, e.Insert("X", 0))
	assert.Equal(t, "abc", string(e.live.content))
	assert.Empty(t, e.pending)
	assert.Empty(t, emit.events)
}

func TestUninitializedEngineIgnoresLocalMutations(t *testing.T) {
	emit := &fakeEmitter{}
	e := NewEngine(emit)

	require.NoError(t, e.Insert("X", 0))
	assert.Empty(t, emit.events)
	assert.Equal(t, StateUninitialized, e.State())
}

func TestEchoMismatchDoesNotMutateFurther(t *testing.T) {
	e, _ := newConnectedEngine(t, "abc")
	require.NoError(t, e.Insert("X", 0))

	// Echo a different payload than what's pending.
	err := e.HandleAddRegion("Y", 0, 1, 5)
	require.ErrorIs(t, err, ErrEchoMismatch)
	require.Len(t, e.pending, 1, "mismatched echo must not pop the pending head")
}

func TestUserDisconnectedRemovesCursorWithoutReset(t *testing.T) {
	e, _ := newConnectedEngine(t, "abc")
	e.HandleCursorMoved(2, 9, "Remote", 1)
	require.NotNil(t, e.live.cursors[9])

	e.HandleUserDisconnected(9)
	assert.Nil(t, e.live.cursors[9])
	assert.Nil(t, e.shadow.cursors[9])
	assert.Equal(t, StateConnected, e.State())
}

func TestPingEmitsUpdateOnlyWhenDirty(t *testing.T) {
	e, emit := newConnectedEngine(t, "abc")
	e.HandlePing()
	assert.Empty(t, emit.events, "not dirty yet: ping should not emit")

	require.NoError(t, e.HandleAddRegion("Z", 3, 2, 7))
	e.HandlePing()
	require.Len(t, emit.events, 1)
	assert.Equal(t, "update_last_mod_id", emit.events[0].kind)

	emit.events = nil
	e.HandlePing()
	assert.Empty(t, emit.events, "clean after first ping: second ping should not emit")
}

func TestRemoteCursorGetsColourOnFirstSight(t *testing.T) {
	e, _ := newConnectedEngine(t, "abc")
	e.HandleCursorMoved(0, 42, "Alice", 1)

	cur := e.shadow.cursors[42]
	require.NotNil(t, cur)
	assert.Equal(t, "Alice", cur.Username)
	assert.NotEmpty(t, cur.Colour)
	assert.NotEqual(t, "black", cur.Colour)
}

// Round-trip: sequential local ops followed by matching echoes converge to
// the same state as applying the ops directly.
func TestRoundTripLocalOpsThenEchoes(t *testing.T) {
	e, _ := newConnectedEngine(t, "hello world")

	require.NoError(t, e.Insert(" there", 5))
	require.NoError(t, e.Remove(0, 1))

	require.NoError(t, e.HandleAddRegion(" there", 5, 1, 1))
	require.NoError(t, e.HandleRemoveRegion(0, 1, 1, 2))

	assert.Equal(t, string(e.live.content), string(e.shadow.content))
	assert.Empty(t, e.pending)

	want := "hello world"
	runes := []rune(want)
	runes = append(runes[:5], append([]rune(" there"), runes[5:]...)...)
	runes = runes[1:]
	assert.Equal(t, string(runes), string(e.live.content))
}
