package document

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/valyala/fastjson"
)

// Document is a JSON document under edit. Lookups and mutations address
// values by key ("a.b[0].c"). A Document is owned by one traversal or edit
// session at a time and is not safe for concurrent use.
type Document struct {
	root  *fastjson.Value
	arena fastjson.Arena
}

// Parse decodes data into a Document.
func Parse(data []byte) (*Document, error) {
	v, err := fastjson.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("document: parse: %w", err)
	}
	return &Document{root: v}, nil
}

// FromValue encodes a Go value (maps, slices, scalars, structs) into a
// Document.
func FromValue(value any) (*Document, error) {
	v, err := encode(value)
	if err != nil {
		return nil, err
	}
	return &Document{root: v}, nil
}

// Get returns the Go representation of the value at key. Objects become
// map[string]any, arrays []any, numbers float64. The boolean is false when
// nothing is stored at key.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.lookup(key)
	if !ok {
		return nil, false
	}
	return decode(v), true
}

// GetPath is Get for an already parsed path.
func (d *Document) GetPath(p Path) (any, bool) {
	v := d.walk(p)
	if v == nil {
		return nil, false
	}
	return decode(v), true
}

// StringAt returns the string stored at key.
func (d *Document) StringAt(key string) (string, bool) {
	v, ok := d.lookup(key)
	if !ok || v.Type() != fastjson.TypeString {
		return "", false
	}
	return string(v.GetStringBytes()), true
}

// Class returns the "$class" discriminator of the object at key.
func (d *Document) Class(key string) (string, bool) {
	p, err := ParseKey(key)
	if err != nil {
		return "", false
	}
	return d.StringAt(p.Field("$class").String())
}

// Len reports the length of the array at key, or zero.
func (d *Document) Len(key string) int {
	v, ok := d.lookup(key)
	if !ok || v.Type() != fastjson.TypeArray {
		return 0
	}
	return len(v.GetArray())
}

// Set stores value at key, creating intermediate objects and arrays.
func (d *Document) Set(key string, value any) error {
	p, err := ParseKey(key)
	if err != nil {
		return err
	}
	encoded, err := encode(value)
	if err != nil {
		return err
	}
	if p.Depth() == 0 {
		d.root = encoded
		return nil
	}
	parent, err := d.ensure(p.Parent(), p.segments[len(p.segments)-1])
	if err != nil {
		return err
	}
	last, _ := p.Last()
	return setChild(parent, last, encoded)
}

// Append adds value to the end of the array at key, creating the array when
// missing.
func (d *Document) Append(key string, value any) error {
	p, err := ParseKey(key)
	if err != nil {
		return err
	}
	return d.Set(p.Index(d.Len(key)).String(), value)
}

// Remove deletes the element at index from the array at key.
func (d *Document) Remove(key string, index int) error {
	v, ok := d.lookup(key)
	if !ok || v.Type() != fastjson.TypeArray {
		return fmt.Errorf("%w: %s", ErrNotArray, key)
	}
	if index < 0 || index >= len(v.GetArray()) {
		return fmt.Errorf("%w: %s[%d]", ErrIndexOutOfRange, key, index)
	}
	v.Del(strconv.Itoa(index))
	return nil
}

// Value returns the Go representation of the whole document.
func (d *Document) Value() any {
	if d == nil || d.root == nil {
		return nil
	}
	return decode(d.root)
}

// Bytes serialises the document.
func (d *Document) Bytes() []byte {
	if d == nil || d.root == nil {
		return []byte("null")
	}
	return d.root.MarshalTo(nil)
}

// Clone returns an independent copy.
func (d *Document) Clone() *Document {
	clone, err := Parse(d.Bytes())
	if err != nil {
		return &Document{root: d.arena.NewNull()}
	}
	return clone
}

func (d *Document) lookup(key string) (*fastjson.Value, bool) {
	p, err := ParseKey(key)
	if err != nil {
		return nil, false
	}
	v := d.walk(p)
	return v, v != nil
}

func (d *Document) walk(p Path) *fastjson.Value {
	if d == nil || d.root == nil {
		return nil
	}
	current := d.root
	for _, seg := range p.segments {
		switch current.Type() {
		case fastjson.TypeObject:
			if seg.IsIndex {
				return nil
			}
			current = current.Get(seg.Name)
		case fastjson.TypeArray:
			if !seg.IsIndex {
				return nil
			}
			items := current.GetArray()
			if seg.Index >= len(items) {
				return nil
			}
			current = items[seg.Index]
		default:
			return nil
		}
		if current == nil {
			return nil
		}
	}
	return current
}

// ensure returns the container at p, creating it (and its ancestors) with
// the shape next requires.
func (d *Document) ensure(p Path, next Segment) (*fastjson.Value, error) {
	if d.root == nil || !isContainer(d.root) {
		d.root = d.container(firstSegment(p, next))
	}
	current := d.root
	for i, seg := range p.segments {
		following := next
		if i+1 < len(p.segments) {
			following = p.segments[i+1]
		}
		child := childOf(current, seg)
		if child == nil || !isContainer(child) {
			child = d.container(following)
			if err := setChild(current, seg, child); err != nil {
				return nil, err
			}
		}
		current = child
	}
	return current, nil
}

func (d *Document) container(seg Segment) *fastjson.Value {
	if seg.IsIndex {
		return d.arena.NewArray()
	}
	return d.arena.NewObject()
}

func firstSegment(p Path, next Segment) Segment {
	if p.Depth() > 0 {
		return p.segments[0]
	}
	return next
}

func isContainer(v *fastjson.Value) bool {
	t := v.Type()
	return t == fastjson.TypeObject || t == fastjson.TypeArray
}

func childOf(v *fastjson.Value, seg Segment) *fastjson.Value {
	switch v.Type() {
	case fastjson.TypeObject:
		if seg.IsIndex {
			return nil
		}
		return v.Get(seg.Name)
	case fastjson.TypeArray:
		if !seg.IsIndex {
			return nil
		}
		items := v.GetArray()
		if seg.Index >= len(items) {
			return nil
		}
		return items[seg.Index]
	}
	return nil
}

func setChild(parent *fastjson.Value, seg Segment, value *fastjson.Value) error {
	switch parent.Type() {
	case fastjson.TypeObject:
		if seg.IsIndex {
			return fmt.Errorf("%w: index %d on object", ErrShapeMismatch, seg.Index)
		}
		parent.Set(seg.Name, value)
	case fastjson.TypeArray:
		if !seg.IsIndex {
			return fmt.Errorf("%w: field %q on array", ErrShapeMismatch, seg.Name)
		}
		parent.SetArrayItem(seg.Index, value)
	default:
		return fmt.Errorf("%w: %s is not a container", ErrShapeMismatch, seg.key())
	}
	return nil
}

func encode(value any) (*fastjson.Value, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("document: encode value: %w", err)
	}
	v, err := fastjson.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("document: encode value: %w", err)
	}
	return v, nil
}

func decode(v *fastjson.Value) any {
	switch v.Type() {
	case fastjson.TypeObject:
		out := make(map[string]any)
		obj, _ := v.Object()
		obj.Visit(func(key []byte, item *fastjson.Value) {
			out[string(key)] = decode(item)
		})
		return out
	case fastjson.TypeArray:
		items := v.GetArray()
		out := make([]any, 0, len(items))
		for _, item := range items {
			out = append(out, decode(item))
		}
		return out
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeNumber:
		return decodeNumber(v)
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	default:
		return nil
	}
}

// maxExactFloat is the largest integer float64 holds without rounding.
const maxExactFloat = 1 << 53

// decodeNumber returns float64 for numbers float64 represents exactly and
// int64 for larger integers, so Long values survive a round trip.
func decodeNumber(v *fastjson.Value) any {
	raw := v.String()
	if !strings.ContainsAny(raw, ".eE") {
		if n, err := v.Int64(); err == nil && (n > maxExactFloat || n < -maxExactFloat) {
			return n
		}
	}
	return v.GetFloat64()
}
