package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActualAddShiftsCursorsAndRanges(t *testing.T) {
	r := newReplica()
	r.content = []rune("abcdef")
	r.cursors[1] = &Cursor{Position: 4}
	r.cursors[2] = &Cursor{Position: 1}
	r.properties["bold"] = newProperty(false)
	r.properties["bold"].buckets[noFlag] = []Range{{Start: 2, End: 5}}

	actualAdd(r, "XY", 3)

	assert.Equal(t, "abcXYdef", string(r.content))
	assert.Equal(t, 6, r.cursors[1].Position, "cursor strictly after insert point shifts")
	assert.Equal(t, 1, r.cursors[2].Position, "cursor before insert point stays put")
	assert.Equal(t, Range{Start: 2, End: 7}, r.properties["bold"].buckets[noFlag][0])
}

func TestActualRemoveShiftsCursorsAndRanges(t *testing.T) {
	r := newReplica()
	r.content = []rune("abcdefgh")
	r.cursors[1] = &Cursor{Position: 6}
	r.properties["bold"] = newProperty(false)
	r.properties["bold"].buckets[noFlag] = []Range{{Start: 2, End: 4}, {Start: 5, End: 7}}

	actualRemove(r, 3, 6)

	assert.Equal(t, "abcgh", string(r.content))
	assert.Equal(t, 3, r.cursors[1].Position)

	ranges := r.properties["bold"].buckets[noFlag]
	if assert.Len(t, ranges, 2) {
		assert.Equal(t, Range{Start: 2, End: 3}, ranges[0])
		assert.Equal(t, Range{Start: 3, End: 4}, ranges[1])
	}
}

func TestActualRemoveDeletesEmptyPropertyEntirely(t *testing.T) {
	r := newReplica()
	r.content = []rune("abcdef")
	r.properties["bold"] = newProperty(false)
	r.properties["bold"].buckets[noFlag] = []Range{{Start: 1, End: 3}}

	actualRemove(r, 0, 4)

	_, exists := r.properties["bold"]
	assert.False(t, exists, "a property with no remaining ranges must be removed entirely")
}

func TestMergeRangeLeftTouch(t *testing.T) {
	ranges := []Range{{Start: 0, End: 3}}
	ranges = mergeRange(ranges, Range{Start: 3, End: 6})
	if assert.Len(t, ranges, 1) {
		assert.Equal(t, Range{Start: 0, End: 6}, ranges[0])
	}
}

func TestMergeRangeRightTouchUsesCorrectedForm(t *testing.T) {
	// The corrected form extends the existing range's start leftward
	// rather than degenerating it.
	ranges := []Range{{Start: 5, End: 8}}
	ranges = mergeRange(ranges, Range{Start: 2, End: 5})
	if assert.Len(t, ranges, 1) {
		assert.Equal(t, Range{Start: 2, End: 8}, ranges[0])
	}
}

func TestActualAddPropertyCreatesFlaglessShape(t *testing.T) {
	r := newReplica()
	r.content = []rune("abcdef")
	actualAddProperty(r, 0, 3, "bold", nil)

	prop := r.properties["bold"]
	if assert.NotNil(t, prop) {
		assert.False(t, prop.flagged)
		assert.Equal(t, []Range{{Start: 0, End: 3}}, prop.buckets[noFlag])
	}
}

func TestActualAddPropertyClearsOverlapBeforeAdding(t *testing.T) {
	r := newReplica()
	r.content = []rune("abcdefghij")
	flagLeft := "left"
	flagRight := "right"
	actualAddProperty(r, 0, 5, "align", &flagLeft)
	actualAddProperty(r, 2, 8, "align", &flagRight)

	prop := r.properties["align"]
	assert.Equal(t, []Range{{Start: 0, End: 2}}, prop.buckets["left"])
	assert.Equal(t, []Range{{Start: 2, End: 8}}, prop.buckets["right"])
}

func TestActualRemovePropertySplitsStraddlingRange(t *testing.T) {
	r := newReplica()
	r.content = []rune("abcdefghij")
	actualAddProperty(r, 0, 10, "bold", nil)

	actualRemoveProperty(r, 3, 6, "bold")

	ranges := r.properties["bold"].buckets[noFlag]
	assert.ElementsMatch(t, []Range{{Start: 0, End: 3}, {Start: 6, End: 10}}, ranges)
}

func TestPropertyDisjointnessAfterMutations(t *testing.T) {
	r := newReplica()
	r.content = []rune("0123456789")
	actualAddProperty(r, 0, 4, "bold", nil)
	actualAddProperty(r, 4, 8, "bold", nil)
	actualRemoveProperty(r, 2, 6, "bold")
	actualAddProperty(r, 2, 6, "bold", nil)

	ranges := r.properties["bold"].buckets[noFlag]
	for i := range ranges {
		assert.Less(t, ranges[i].Start, ranges[i].End)
		for j := range ranges {
			if i == j {
				continue
			}
			overlap := ranges[i].Start < ranges[j].End && ranges[j].Start < ranges[i].End
			assert.False(t, overlap, "ranges %v and %v overlap", ranges[i], ranges[j])
		}
	}
}
