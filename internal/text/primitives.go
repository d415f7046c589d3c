package text

// shiftOnInsert implements the gap-model fixed-point rule for an insertion
// of length l at position: points strictly after position move right by l.
func shiftOnInsert(p, position, l int) int {
	if p > position {
		return p + l
	}
	return p
}

// shiftOnRemove implements the fixed-point rule for removing [start, end):
// points after start move left by however much of [start, end) lies before
// them.
func shiftOnRemove(p, start, end int) int {
	if p > start {
		m := end
		if p < m {
			m = p
		}
		return p - (m - start)
	}
	return p
}

// actualAdd splices text into the replica's content at position and shifts
// every fixed point (cursors, property range endpoints) accordingly.
func actualAdd(r *replica, text string, position int) {
	runes := []rune(text)
	l := len(runes)
	if l == 0 {
		spliceInsert(r, runes, position)
		return
	}

	for _, c := range r.cursors {
		c.Position = shiftOnInsert(c.Position, position, l)
	}
	for _, prop := range r.properties {
		for flag, ranges := range prop.buckets {
			for i := range ranges {
				ranges[i].Start = shiftOnInsert(ranges[i].Start, position, l)
				ranges[i].End = shiftOnInsert(ranges[i].End, position, l)
			}
			prop.buckets[flag] = ranges
		}
	}

	spliceInsert(r, runes, position)
}

func spliceInsert(r *replica, runes []rune, position int) {
	if position < 0 {
		position = 0
	}
	if position > len(r.content) {
		position = len(r.content)
	}
	out := make([]rune, 0, len(r.content)+len(runes))
	out = append(out, r.content[:position]...)
	out = append(out, runes...)
	out = append(out, r.content[position:]...)
	r.content = out
}

// actualRemove deletes [start, end) from the replica's content and shifts
// every fixed point accordingly, then drops any range/bucket/property that
// became empty.
func actualRemove(r *replica, start, end int) {
	if start >= end {
		return
	}

	for _, c := range r.cursors {
		c.Position = shiftOnRemove(c.Position, start, end)
	}
	for _, prop := range r.properties {
		for flag, ranges := range prop.buckets {
			kept := ranges[:0]
			for _, rg := range ranges {
				rg.Start = shiftOnRemove(rg.Start, start, end)
				rg.End = shiftOnRemove(rg.End, start, end)
				if rg.Start < rg.End {
					kept = append(kept, rg)
				}
			}
			if len(kept) == 0 {
				delete(prop.buckets, flag)
			} else {
				prop.buckets[flag] = kept
			}
		}
	}
	pruneEmptyProperties(r)

	if start < 0 {
		start = 0
	}
	if end > len(r.content) {
		end = len(r.content)
	}
	out := make([]rune, 0, len(r.content)-(end-start))
	out = append(out, r.content[:start]...)
	out = append(out, r.content[end:]...)
	r.content = out
}

func pruneEmptyProperties(r *replica) {
	for name, prop := range r.properties {
		if len(prop.buckets) == 0 {
			delete(r.properties, name)
		}
	}
}

// actualAddProperty adds [start, end) to the (property, flag) bucket,
// creating the property with the right shape on first use and rejecting a
// write that would change an already-fixed shape: shape mismatches are
// rejected, not coerced.
func actualAddProperty(r *replica, start, end int, name string, flag *string) {
	if start >= end {
		return
	}
	flagged := flag != nil

	prop, exists := r.properties[name]
	if !exists {
		prop = newProperty(flagged)
		r.properties[name] = prop
	} else if prop.flagged != flagged {
		return
	} else {
		actualRemoveProperty(r, start, end, name)
		prop = r.properties[name]
		if prop == nil {
			prop = newProperty(flagged)
			r.properties[name] = prop
		}
	}

	key := flagKey(flag)
	prop.buckets[key] = mergeRange(prop.buckets[key], Range{Start: start, End: end})
}

// mergeRange inserts rg into ranges, merging with any range it touches.
// The right-touch case uses R.Start <- start rather than the degenerate
// R.End <- start, which would silently shrink the merged range.
func mergeRange(ranges []Range, rg Range) []Range {
	for i := range ranges {
		if ranges[i].End == rg.Start {
			ranges[i].End = rg.End
			return ranges
		}
		if ranges[i].Start == rg.End {
			ranges[i].Start = rg.Start
			return ranges
		}
	}
	return append(ranges, rg)
}

// actualRemoveProperty clears [start, end) out of every flag bucket of the
// named property, splitting any range that straddles the boundary and
// dropping anything that becomes empty. It applies to all flags because
// the remove_property wire event carries no flag field.
func actualRemoveProperty(r *replica, start, end int, name string) {
	if start >= end {
		return
	}
	prop, ok := r.properties[name]
	if !ok {
		return
	}
	for flag, ranges := range prop.buckets {
		var kept []Range
		for _, rg := range ranges {
			if rg.End <= start || rg.Start >= end {
				// No overlap with [start, end): passes through unchanged.
				kept = append(kept, rg)
				continue
			}
			if rg.Start < start {
				kept = append(kept, Range{Start: rg.Start, End: start})
			}
			if rg.End > end {
				kept = append(kept, Range{Start: end, End: rg.End})
			}
		}
		if len(kept) == 0 {
			delete(prop.buckets, flag)
		} else {
			prop.buckets[flag] = kept
		}
	}
	if len(prop.buckets) == 0 {
		delete(r.properties, name)
	}
}
