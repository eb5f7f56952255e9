package document

import (
	"fmt"
	"strconv"
	"strings"
)

// Segment is a single step of a Path: either an object field or an array
// index.
type Segment struct {
	Name    string
	Index   int
	IsIndex bool
}

func (s Segment) key() string {
	if s.IsIndex {
		return strconv.Itoa(s.Index)
	}
	return s.Name
}

// Path identifies a location inside a document. Paths are immutable values;
// Field and Index return extended copies and never alias the receiver.
type Path struct {
	segments []Segment
}

// Root is the empty path addressing the document root.
var Root = Path{}

// Field returns p extended with an object field.
func (p Path) Field(name string) Path {
	return p.with(Segment{Name: name})
}

// Index returns p extended with an array index.
func (p Path) Index(i int) Path {
	return p.with(Segment{Index: i, IsIndex: true})
}

func (p Path) with(seg Segment) Path {
	next := make([]Segment, len(p.segments), len(p.segments)+1)
	copy(next, p.segments)
	return Path{segments: append(next, seg)}
}

// Depth reports the number of segments.
func (p Path) Depth() int { return len(p.segments) }

// Segments returns a copy of the path segments.
func (p Path) Segments() []Segment {
	return append([]Segment(nil), p.segments...)
}

// Last returns the final segment.
func (p Path) Last() (Segment, bool) {
	if len(p.segments) == 0 {
		return Segment{}, false
	}
	return p.segments[len(p.segments)-1], true
}

// Parent returns p without its final segment.
func (p Path) Parent() Path {
	if len(p.segments) == 0 {
		return p
	}
	return Path{segments: append([]Segment(nil), p.segments[:len(p.segments)-1]...)}
}

// String renders the lookup key, e.g. "items[0].product".
func (p Path) String() string {
	var b strings.Builder
	for i, seg := range p.segments {
		if seg.IsIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg.Name)
	}
	return b.String()
}

// ParseKey parses a lookup key produced by Path.String.
func ParseKey(key string) (Path, error) {
	var p Path
	rest := strings.TrimSpace(key)
	for rest != "" {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			if rest == "" || rest[0] == '.' || rest[0] == '[' {
				return Path{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
			}
		case '[':
			end := strings.IndexByte(rest, ']')
			if end < 0 {
				return Path{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
			}
			idx, err := strconv.Atoi(rest[1:end])
			if err != nil || idx < 0 {
				return Path{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
			}
			p = p.Index(idx)
			rest = rest[end+1:]
		default:
			end := strings.IndexAny(rest, ".[")
			if end < 0 {
				end = len(rest)
			}
			p = p.Field(rest[:end])
			rest = rest[end:]
		}
	}
	return p, nil
}

// MustParseKey panics on malformed keys.
func MustParseKey(key string) Path {
	p, err := ParseKey(key)
	if err != nil {
		panic(err)
	}
	return p
}
