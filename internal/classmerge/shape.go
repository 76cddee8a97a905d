package classmerge

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/dexmerge/internal/dex"
)

// Shape is the structural signature of a type's instance fields: the field
// count per category. Two types with equal Shapes have interchangeable
// field layouts for merging purposes.
type Shape struct {
	StringFields    int
	ReferenceFields int
	BoolFields      int
	IntFields       int
	LongFields      int
	DoubleFields    int
	FloatFields     int
}

// ShapeOf computes the shape of a field list. Static fields are ignored.
func ShapeOf(fields []dex.Field) Shape {
	var s Shape
	for _, f := range fields {
		if f.Static {
			continue
		}
		switch f.Category {
		case dex.CategoryString:
			s.StringFields++
		case dex.CategoryReference:
			s.ReferenceFields++
		case dex.CategoryBool:
			s.BoolFields++
		case dex.CategoryInt:
			s.IntFields++
		case dex.CategoryLong:
			s.LongFields++
		case dex.CategoryDouble:
			s.DoubleFields++
		case dex.CategoryFloat:
			s.FloatFields++
		}
	}
	return s
}

func (s Shape) counts() [7]int {
	return [7]int{
		s.StringFields, s.ReferenceFields, s.BoolFields,
		s.IntFields, s.LongFields, s.DoubleFields, s.FloatFields,
	}
}

// String renders the shape as "(string,ref,bool,int,long,double,float)".
func (s Shape) String() string {
	c := s.counts()
	return fmt.Sprintf("(%d,%d,%d,%d,%d,%d,%d)", c[0], c[1], c[2], c[3], c[4], c[5], c[6])
}

// Less imposes a total order on shapes for deterministic grouping.
func (s Shape) Less(o Shape) bool {
	a, b := s.counts(), o.counts()
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// FieldCount returns the total number of field slots.
func (s Shape) FieldCount() int {
	total := 0
	for _, c := range s.counts() {
		total += c
	}
	return total
}

// Includes reports whether s has at least as many slots as o in every
// category, i.e. types of shape o can be padded into shape s.
func (s Shape) Includes(o Shape) bool {
	a, b := s.counts(), o.counts()
	for i := range a {
		if a[i] < b[i] {
			return false
		}
	}
	return true
}

// Distance returns the number of padding slots needed to widen o to s.
// Only meaningful when s.Includes(o).
func (s Shape) Distance(o Shape) int {
	return s.FieldCount() - o.FieldCount()
}

// BuildTypeName composes the synthetic merger class name, e.g.
// "LGenCodeEBaseShape2S0100000_I3_1;".
func (s Shape) BuildTypeName(
	prefix string,
	rootType *dex.Type,
	name string,
	count int,
	interdexSubgroup *int,
	subgroup int,
) string {
	var b strings.Builder
	b.WriteString("L")
	b.WriteString(prefix)
	b.WriteString(rootTypeNameTag(rootType))
	b.WriteString(name)
	fmt.Fprintf(&b, "%dS", count)
	for _, c := range s.counts() {
		fmt.Fprintf(&b, "%d", c)
	}
	if interdexSubgroup != nil {
		fmt.Fprintf(&b, "_I%d", *interdexSubgroup)
	}
	if subgroup != 0 {
		fmt.Fprintf(&b, "_%d", subgroup)
	}
	b.WriteString(";")
	return b.String()
}

// rootTypeNameTag extracts a minimal but identifiable tag from the root
// type name: the last capitalized word of the simple name, prepended with
// the capital of the word before it. E.g. "TypedEventBase" -> "EBase".
func rootTypeNameTag(rootType *dex.Type) string {
	name := rootType.SimpleName()
	runes := []rune(name)

	end := len(runes)
	start := end
	for start > 0 {
		start--
		if unicode.IsUpper(runes[start]) {
			break
		}
	}
	tag := string(runes[start:end])
	for i := start - 1; i >= 0; i-- {
		if unicode.IsUpper(runes[i]) {
			tag = string(runes[i]) + tag
			break
		}
	}
	return tag
}

// ============================================================================
// ShapeCollector - shape equivalence classes
// ============================================================================

// intfGroup is the portion of a shape bucket sharing one exact interface
// set. Mergers never mix types with differing interface sets.
type intfGroup struct {
	intfs *dex.TypeSet
	types *dex.TypeSet
}

// shapeBucket is one shape equivalence class.
type shapeBucket struct {
	shape Shape
	types *dex.TypeSet
}

// ShapeCollector groups candidate types by structural shape. Grouping is
// order independent: buckets key on the shape value and all sets are name
// ordered.
type ShapeCollector struct {
	buckets map[Shape]*shapeBucket
}

// NewShapeCollector creates an empty collector.
func NewShapeCollector() *ShapeCollector {
	return &ShapeCollector{buckets: make(map[Shape]*shapeBucket)}
}

// Insert records a candidate type under its shape.
func (c *ShapeCollector) Insert(shape Shape, t *dex.Type) {
	bucket, ok := c.buckets[shape]
	if !ok {
		bucket = &shapeBucket{shape: shape, types: dex.NewTypeSet()}
		c.buckets[shape] = bucket
	}
	bucket.types.Insert(t)
}

// Shapes returns the shapes in total order.
func (c *ShapeCollector) Shapes() []Shape {
	shapes := make([]Shape, 0, len(c.buckets))
	for shape := range c.buckets {
		shapes = append(shapes, shape)
	}
	sort.Slice(shapes, func(i, j int) bool { return shapes[i].Less(shapes[j]) })
	return shapes
}

// TypesOf returns the bucket for a shape, or nil.
func (c *ShapeCollector) TypesOf(shape Shape) *dex.TypeSet {
	if bucket, ok := c.buckets[shape]; ok {
		return bucket.types
	}
	return nil
}

// Len returns the number of distinct shapes.
func (c *ShapeCollector) Len() int {
	return len(c.buckets)
}

// remove drops a shape bucket; used when folding shapes approximately.
func (c *ShapeCollector) remove(shape Shape) {
	delete(c.buckets, shape)
}

// breakByInterface splits a shape bucket by exact interface set. Groups
// are returned ordered by interface set key for determinism.
func breakByInterface(types *dex.TypeSet, intfsOf func(*dex.Type) *dex.TypeSet) []*intfGroup {
	byKey := make(map[string]*intfGroup)
	for _, t := range types.Types() {
		intfs := intfsOf(t)
		key := intfs.Key()
		group, ok := byKey[key]
		if !ok {
			group = &intfGroup{intfs: intfs, types: dex.NewTypeSet()}
			byKey[key] = group
		}
		group.types.Insert(t)
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	groups := make([]*intfGroup, 0, len(keys))
	for _, key := range keys {
		groups = append(groups, byKey[key])
	}
	return groups
}
