package typesystem

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexmerge/internal/dex"
)

func buildScope(t *testing.T, img *dex.Image) (*dex.Scope, *dex.TypeIndex) {
	t.Helper()
	ix := dex.NewTypeIndex()
	prog, err := dex.BuildImage(img, ix)
	require.NoError(t, err)
	return prog.Scope, ix
}

func testImage() *dex.Image {
	return &dex.Image{
		Classes: []dex.ImageClass{
			{
				Name:     "Lcom/foo/Base;",
				Super:    "Ljava/lang/Object;",
				Abstract: true,
				Methods: []dex.ImageMethod{
					{Name: "run", Proto: "()V", Virtual: true, Abstract: true},
				},
			},
			{
				Name:  "Lcom/foo/A;",
				Super: "Lcom/foo/Base;",
				Methods: []dex.ImageMethod{
					{Name: "run", Proto: "()V", Virtual: true, Body: "body-a"},
				},
			},
			{
				Name:       "Lcom/foo/B;",
				Super:      "Lcom/foo/Base;",
				Interfaces: []string{"Lcom/foo/Marker;"},
				Methods: []dex.ImageMethod{
					{Name: "run", Proto: "()V", Virtual: true, Body: "body-b"},
					{Name: "tag", Proto: "()I", Virtual: true, Body: "tag-b"},
				},
			},
			{
				Name:  "Lcom/foo/A1;",
				Super: "Lcom/foo/A;",
			},
			{
				Name: "Lcom/foo/Marker;",
				Methods: []dex.ImageMethod{
					{Name: "tag", Proto: "()I", Virtual: true, Abstract: true},
				},
				Interface: true,
			},
		},
	}
}

func TestTypeSystem_Hierarchy(t *testing.T) {
	scope, ix := buildScope(t, testImage())
	ts, err := New(scope)
	require.NoError(t, err)

	base := ix.Intern("Lcom/foo/Base;")
	a := ix.Intern("Lcom/foo/A;")
	a1 := ix.Intern("Lcom/foo/A1;")
	b := ix.Intern("Lcom/foo/B;")

	assert.Equal(t, base, ts.ParentOf(a))
	assert.Equal(t, a, ts.ParentOf(a1))
	assert.Equal(t, []*dex.Type{a, b}, ts.ChildrenOf(base).Types())

	subtypes := ts.SubtypesOf(base)
	assert.Equal(t, 3, subtypes.Len())
	assert.True(t, subtypes.Contains(a1))
}

func TestTypeSystem_Interfaces(t *testing.T) {
	scope, ix := buildScope(t, testImage())
	ts, err := New(scope)
	require.NoError(t, err)

	marker := ix.Intern("Lcom/foo/Marker;")
	b := ix.Intern("Lcom/foo/B;")
	a := ix.Intern("Lcom/foo/A;")

	assert.True(t, ts.IsInterface(marker))
	assert.False(t, ts.IsInterface(b))

	assert.True(t, ts.InterfacesOf(b).Contains(marker))
	assert.False(t, ts.InterfacesOf(a).Contains(marker))

	impls := ts.ImplementorsOf(marker)
	assert.Equal(t, []*dex.Type{b}, impls.Types())
}

func TestTypeSystem_InterfaceInheritance(t *testing.T) {
	img := testImage()
	// C extends B, inheriting the Marker interface.
	img.Classes = append(img.Classes, dex.ImageClass{
		Name:  "Lcom/foo/C;",
		Super: "Lcom/foo/B;",
	})
	scope, ix := buildScope(t, img)
	ts, err := New(scope)
	require.NoError(t, err)

	marker := ix.Intern("Lcom/foo/Marker;")
	c := ix.Intern("Lcom/foo/C;")

	assert.True(t, ts.InterfacesOf(c).Contains(marker))
	assert.True(t, ts.ImplementorsOf(marker).Contains(c))
}

func TestTypeSystem_VirtualScopes(t *testing.T) {
	scope, ix := buildScope(t, testImage())
	ts, err := New(scope)
	require.NoError(t, err)

	base := ix.Intern("Lcom/foo/Base;")
	a := ix.Intern("Lcom/foo/A;")
	b := ix.Intern("Lcom/foo/B;")

	scopes := ts.VirtualScopesRootedAt(base)
	require.Len(t, scopes, 1)

	run := scopes[0]
	assert.Equal(t, "run", run.Name)
	assert.Equal(t, "()V", run.Proto)
	assert.Equal(t, "run()V", run.Signature())
	assert.Nil(t, run.Interface)
	require.Len(t, run.Methods, 3)
	// Root definition first, then overrides in name order.
	assert.Equal(t, base, run.Methods[0].Owner)
	assert.Equal(t, a, run.Methods[1].Owner)
	assert.Equal(t, b, run.Methods[2].Owner)

	// tag()I on B is rooted at B itself (Marker is folded as an
	// interface scope, not a class scope).
	bScopes := ts.VirtualScopesRootedAt(b)
	require.Len(t, bScopes, 1)
	assert.Equal(t, "tag", bScopes[0].Name)
}

func TestTypeSystem_InterfaceScopes(t *testing.T) {
	scope, ix := buildScope(t, testImage())
	ts, err := New(scope)
	require.NoError(t, err)

	marker := ix.Intern("Lcom/foo/Marker;")
	b := ix.Intern("Lcom/foo/B;")

	scopes := ts.InterfaceScopesOf(marker)
	require.Len(t, scopes, 1)
	assert.Equal(t, "tag", scopes[0].Name)
	assert.Equal(t, marker, scopes[0].Interface)
	require.Len(t, scopes[0].Methods, 1)
	assert.Equal(t, b, scopes[0].Methods[0].Owner)
}

func TestTypeSystem_CyclicHierarchy(t *testing.T) {
	img := &dex.Image{
		Classes: []dex.ImageClass{
			{Name: "La;", Super: "Lb;"},
			{Name: "Lb;", Super: "Lc;"},
			{Name: "Lc;", Super: "La;"},
		},
	}
	scope, _ := buildScope(t, img)

	_, err := New(scope)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cyclic")
}

func TestTypeSystem_SelfSuper(t *testing.T) {
	img := &dex.Image{
		Classes: []dex.ImageClass{
			{Name: "La;", Super: "La;"},
		},
	}
	scope, _ := buildScope(t, img)

	_, err := New(scope)
	assert.Error(t, err)
}

func TestTypeSystem_DeepSharedChain(t *testing.T) {
	// Many leaves share one long super chain; the chain must settle once
	// and every later walk stops at the first settled ancestor.
	img := &dex.Image{
		Classes: []dex.ImageClass{
			{Name: "Ld0;", Super: "Ljava/lang/Object;"},
			{Name: "Ld1;", Super: "Ld0;"},
			{Name: "Ld2;", Super: "Ld1;"},
			{Name: "Ld3;", Super: "Ld2;"},
		},
	}
	for i := 0; i < 8; i++ {
		img.Classes = append(img.Classes, dex.ImageClass{
			Name:  fmt.Sprintf("Lleaf%d;", i),
			Super: "Ld3;",
		})
	}
	scope, ix := buildScope(t, img)

	ts, err := New(scope)
	require.NoError(t, err)
	d3, ok := ix.Get("Ld3;")
	require.True(t, ok)
	assert.Equal(t, 8, ts.ChildrenOf(d3).Len())
}
