package text

import (
	"fmt"
	"sort"
	"strings"
)

// span is one property range flattened out of the property table for
// rendering purposes, carrying enough identity to track it on the tag
// stack independently of any other span.
type span struct {
	id       int
	name     string
	flag     *string
	flagged  bool
	start    int
	end      int
}

func (s span) tagName() string {
	return s.name
}

func (s span) attr() string {
	if !s.flagged || s.flag == nil {
		return ""
	}
	return fmt.Sprintf(" flag=%q", escape(*s.flag))
}

// Render walks content and produces the single-string markup: cursor
// markers, then open/close tags for property ranges (with crossing tags
// closed and reopened to keep a strict LIFO stack and no
// overlap in the output), then the escaped code unit.
func Render(content string, cursors map[int]Cursor, properties Properties) string {
	runes := []rune(content)
	n := len(runes)

	spans := flattenSpans(properties)

	opensAt := make(map[int][]span, len(spans))
	closesAt := make(map[int][]span, len(spans))
	for _, s := range spans {
		opensAt[s.start] = append(opensAt[s.start], s)
		closesAt[s.end] = append(closesAt[s.end], s)
	}
	for _, bucket := range opensAt {
		sortSpans(bucket)
	}
	for _, bucket := range closesAt {
		sortSpans(bucket)
	}

	cursorsAt := make(map[int][]Cursor)
	for _, c := range cursors {
		cursorsAt[c.Position] = append(cursorsAt[c.Position], c)
	}
	for pos := range cursorsAt {
		sort.Slice(cursorsAt[pos], func(i, j int) bool {
			return cursorsAt[pos][i].Username < cursorsAt[pos][j].Username
		})
	}

	var out strings.Builder
	var stack []span

	for i := 0; i <= n; i++ {
		for _, c := range cursorsAt[i] {
			out.WriteString(fmt.Sprintf("<cursor user=%q colour=%q/>", escape(c.Username), escape(c.Colour)))
		}

		for _, target := range closesAt[i] {
			idx := indexOf(stack, target.id)
			if idx < 0 {
				continue
			}
			above := append([]span(nil), stack[idx+1:]...)
			for j := len(above) - 1; j >= 0; j-- {
				out.WriteString("</" + above[j].tagName() + ">")
			}
			out.WriteString("</" + target.tagName() + ">")
			stack = stack[:idx]
			for _, s := range above {
				out.WriteString("<" + s.tagName() + s.attr() + ">")
				stack = append(stack, s)
			}
		}

		for _, s := range opensAt[i] {
			out.WriteString("<" + s.tagName() + s.attr() + ">")
			stack = append(stack, s)
		}

		if i < n {
			writeEscapedRune(&out, runes[i])
		}
	}

	return out.String()
}

func indexOf(stack []span, id int) int {
	for i, s := range stack {
		if s.id == id {
			return i
		}
	}
	return -1
}

func flattenSpans(properties Properties) []span {
	var spans []span
	id := 0
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop := properties[name]
		flags := make([]string, 0, len(prop.buckets))
		for flag := range prop.buckets {
			flags = append(flags, flag)
		}
		sort.Strings(flags)
		for _, flag := range flags {
			for _, rg := range prop.buckets[flag] {
				var flagPtr *string
				if prop.flagged {
					f := flag
					flagPtr = &f
				}
				spans = append(spans, span{
					id:      id,
					name:    name,
					flag:    flagPtr,
					flagged: prop.flagged,
					start:   rg.Start,
					end:     rg.End,
				})
				id++
			}
		}
	}
	return spans
}

func sortSpans(spans []span) {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].name != spans[j].name {
			return spans[i].name < spans[j].name
		}
		return flagKey(spans[i].flag) < flagKey(spans[j].flag)
	})
}

// writeEscapedRune writes a single code unit, expanding the two markup
// metacharacters to entities so content can never break out of a tag.
func writeEscapedRune(out *strings.Builder, r rune) {
	switch r {
	case '<':
		out.WriteString("&lt;")
	case '>':
		out.WriteString("&gt;")
	default:
		out.WriteRune(r)
	}
}

// escape replaces the two markup metacharacters so content and flag values
// can never break out of the tag they're embedded in. Flags go through the
// same escaping as content rather than being concatenated verbatim.
func escape(s string) string {
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}
