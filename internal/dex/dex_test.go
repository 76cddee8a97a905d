package dex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeIndex_Intern(t *testing.T) {
	ix := NewTypeIndex()

	a := ix.Intern("Lcom/foo/Bar;")
	b := ix.Intern("Lcom/foo/Bar;")
	c := ix.Intern("Lcom/foo/Baz;")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, ix.Len())
	assert.NotZero(t, a.Hash())

	got, ok := ix.Get("Lcom/foo/Baz;")
	assert.True(t, ok)
	assert.Same(t, c, got)
}

func TestType_SimpleName(t *testing.T) {
	ix := NewTypeIndex()

	assert.Equal(t, "Bar", ix.Intern("Lcom/foo/Bar;").SimpleName())
	assert.Equal(t, "TypedEventBase", ix.Intern("Lcom/facebook/TypedEventBase;").SimpleName())
}

func TestTypeSet_Ordering(t *testing.T) {
	ix := NewTypeIndex()
	a := ix.Intern("La;")
	b := ix.Intern("Lb;")
	c := ix.Intern("Lc;")

	// Insertion order must not affect iteration order.
	s1 := NewTypeSet(c, a, b)
	s2 := NewTypeSet(b, c, a)

	assert.Equal(t, s1.Types(), s2.Types())
	assert.Equal(t, []*Type{a, b, c}, s1.Types())
	assert.Equal(t, "La;|Lb;|Lc;", s1.Key())
}

func TestTypeSet_InsertRemove(t *testing.T) {
	ix := NewTypeIndex()
	a := ix.Intern("La;")
	b := ix.Intern("Lb;")

	s := NewTypeSet()
	assert.True(t, s.Insert(a))
	assert.False(t, s.Insert(a))
	assert.True(t, s.Insert(b))
	assert.Equal(t, 2, s.Len())

	assert.True(t, s.Remove(a))
	assert.False(t, s.Remove(a))
	assert.False(t, s.Contains(a))
	assert.True(t, s.Contains(b))
}

func TestTypeSet_Clone(t *testing.T) {
	ix := NewTypeIndex()
	a := ix.Intern("La;")
	b := ix.Intern("Lb;")

	s := NewTypeSet(a)
	c := s.Clone()
	c.Insert(b)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 2, c.Len())
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		descriptor string
		expected   FieldCategory
	}{
		{"Ljava/lang/String;", CategoryString},
		{"Lcom/foo/Bar;", CategoryReference},
		{"[I", CategoryReference},
		{"I", CategoryInt},
		{"B", CategoryInt},
		{"S", CategoryInt},
		{"C", CategoryInt},
		{"Z", CategoryBool},
		{"J", CategoryLong},
		{"D", CategoryDouble},
		{"F", CategoryFloat},
	}

	for _, tt := range tests {
		t.Run(tt.descriptor, func(t *testing.T) {
			category, err := CategoryOf(tt.descriptor)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, category)
		})
	}

	_, err := CategoryOf("V")
	assert.Error(t, err)
	_, err = CategoryOf("")
	assert.Error(t, err)
}

const testImage = `{
  "classes": [
    {
      "name": "Lcom/foo/Base;",
      "super": "Ljava/lang/Object;",
      "abstract": true,
      "methods": [
        {"name": "run", "proto": "()V", "virtual": true, "abstract": true}
      ]
    },
    {
      "name": "Lcom/foo/A;",
      "super": "Lcom/foo/Base;",
      "interfaces": ["Lcom/foo/Marker;"],
      "fields": [
        {"name": "count", "descriptor": "I"},
        {"name": "label", "descriptor": "Ljava/lang/String;"},
        {"name": "cache", "descriptor": "I", "static": true}
      ],
      "methods": [
        {"name": "run", "proto": "()V", "virtual": true, "body": "const/4 v0; return-void"}
      ]
    },
    {
      "name": "Lcom/foo/Marker;",
      "interface": true
    }
  ],
  "dexes": [
    {"name": "classes.dex", "types": ["Lcom/foo/Base;"]},
    {"name": "classes2.dex", "types": ["Lcom/foo/A;", "Lcom/foo/Marker;"]}
  ]
}`

func TestLoadImage(t *testing.T) {
	ix := NewTypeIndex()
	prog, err := LoadImage(strings.NewReader(testImage), ix)
	require.NoError(t, err)
	scope, stores := prog.Scope, prog.Stores

	assert.Equal(t, 3, scope.Len())

	base := scope.ClassOf(ix.Intern("Lcom/foo/Base;"))
	require.NotNil(t, base)
	assert.False(t, base.IsInterface())
	assert.True(t, base.Methods[0].Abstract())

	a := scope.ClassOf(ix.Intern("Lcom/foo/A;"))
	require.NotNil(t, a)
	assert.Same(t, base.Type, a.Super)
	assert.Len(t, a.InstanceFields(), 2)
	assert.Len(t, a.StaticFields(), 1)
	assert.Equal(t, CategoryString, a.InstanceFields()[1].Category)

	run := a.FindVirtualMethod("run", "()V")
	require.NotNil(t, run)
	assert.NotZero(t, run.BodyHash)
	assert.Equal(t, HashBody("const/4 v0; return-void"), run.BodyHash)

	marker := scope.ClassOf(ix.Intern("Lcom/foo/Marker;"))
	require.NotNil(t, marker)
	assert.True(t, marker.IsInterface())

	// Dex layout queries.
	assert.Equal(t, 2, stores.NumDexes())
	assert.True(t, stores.IsPrimaryDex(base.Type))
	assert.False(t, stores.IsPrimaryDex(a.Type))
	dexIdx, ok := stores.DexFor(a.Type)
	assert.True(t, ok)
	assert.Equal(t, 1, dexIdx)
}

func TestLoadImage_DefaultDex(t *testing.T) {
	ix := NewTypeIndex()
	prog, err := LoadImage(strings.NewReader(
		`{"classes":[{"name":"La;"}],"type_strings":["La;"]}`), ix)
	require.NoError(t, err)

	assert.Equal(t, 1, prog.Scope.Len())
	assert.Equal(t, 1, prog.Stores.NumDexes())
	assert.True(t, prog.Stores.IsPrimaryDex(ix.Intern("La;")))
	assert.True(t, prog.TypeStrings.Contains(ix.Intern("La;")))
}

func TestLoadImage_BadDescriptor(t *testing.T) {
	ix := NewTypeIndex()
	_, err := LoadImage(strings.NewReader(
		`{"classes":[{"name":"La;","fields":[{"name":"x","descriptor":"V"}]}]}`), ix)
	assert.Error(t, err)
}

func TestClass_CodeSize(t *testing.T) {
	cls := &Class{
		Methods: []*Method{
			{Name: "a", CodeSize: 10},
			{Name: "b", CodeSize: 32},
		},
	}
	assert.Equal(t, 42, cls.CodeSize())
}
