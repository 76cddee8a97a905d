package classmerge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexmerge/internal/dex"
	apperrors "github.com/dexmerge/pkg/errors"
)

func TestParseInterDexGroupingType(t *testing.T) {
	cases := map[string]InterDexGroupingType{
		"disabled":        InterdexDisabled,
		"non-hot-set":     InterdexNonHotSet,
		"non-ordered-set": InterdexNonOrderedSet,
		"full":            InterdexFull,
	}
	for input, want := range cases {
		got, err := ParseInterDexGroupingType(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, input, got.String())
	}

	_, err := ParseInterDexGroupingType("bogus")
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSpecError, apperrors.GetErrorCode(err))
}

func TestParseTypeTagConfig(t *testing.T) {
	cases := map[string]TypeTagConfig{
		"":                            TypeTagGenerate, // unset defaults to generate
		"none":                        TypeTagNone,
		"generate":                    TypeTagGenerate,
		"input-pass-type-tag-to-ctor": TypeTagInputPassToCtor,
		"input-handled":               TypeTagInputHandled,
	}
	for input, want := range cases {
		got, err := ParseTypeTagConfig(input)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseTypeTagConfig("bogus")
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	got, err := ParseStrategy("by-class-count")
	require.NoError(t, err)
	assert.Equal(t, StrategyByClassCount, got)

	got, err = ParseStrategy("by-code-size")
	require.NoError(t, err)
	assert.Equal(t, StrategyByCodeSize, got)

	_, err = ParseStrategy("by-vibes")
	assert.Error(t, err)
}

func TestModelSpec_Validate(t *testing.T) {
	ix := dex.NewTypeIndex()
	root := ix.Intern("Lcom/app/Base;")

	spec := &ModelSpec{Name: "m", Roots: []*dex.Type{root}}
	require.NoError(t, spec.Validate())
	assert.Equal(t, 2, spec.MinCount)
	assert.Equal(t, "mTypeTag", spec.TypeTagField)

	noName := &ModelSpec{Roots: []*dex.Type{root}}
	assert.Error(t, noName.Validate())

	noRoots := &ModelSpec{Name: "m"}
	assert.Error(t, noRoots.Validate())

	inverted := &ModelSpec{Name: "m", Roots: []*dex.Type{root}, MinCount: 5, MaxCount: 3}
	err := inverted.Validate()
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeSpecError, apperrors.GetErrorCode(err))
}

func TestModelSpec_TagHelpers(t *testing.T) {
	spec := &ModelSpec{TypeTagConfig: TypeTagGenerate}
	assert.True(t, spec.GenerateTypeTag())
	assert.True(t, spec.HasTypeTag())
	assert.False(t, spec.NoTypeTag())
	assert.False(t, spec.InputHasTypeTag())

	spec.TypeTagConfig = TypeTagInputPassToCtor
	assert.True(t, spec.InputHasTypeTag())
	assert.True(t, spec.PassTypeTagToCtor())

	spec.TypeTagConfig = TypeTagNone
	assert.True(t, spec.NoTypeTag())
	assert.False(t, spec.HasTypeTag())
}
