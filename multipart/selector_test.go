package multipart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textHeaders(name string) *PartHeaders {
	return &PartHeaders{FieldName: name, ContentType: defaultTextContentType}
}

func fileHeaders(name, filename, contentType string) *PartHeaders {
	fn := filename
	return &PartHeaders{FieldName: name, FileName: &fn, ContentType: contentType}
}

// ============================================================================
// selectorEngine — Any
// ============================================================================

func TestSelectorEngine_Any_AcceptsEverything(t *testing.T) {
	t.Parallel()

	cfg, err := newConfig(WithSelector(SelectorAny()))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	d, err := eng.evaluate(textHeaders("whatever"))
	require.NoError(t, err)
	assert.True(t, d.accept)

	d, err = eng.evaluate(fileHeaders("f", "a.txt", "text/plain"))
	require.NoError(t, err)
	assert.True(t, d.accept)
}

// ============================================================================
// selectorEngine — None
// ============================================================================

func TestSelectorEngine_None_RejectsFiles(t *testing.T) {
	t.Parallel()

	cfg, err := newConfig(WithSelector(SelectorNone()))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	_, err = eng.evaluate(fileHeaders("f", "a.txt", "text/plain"))
	require.Error(t, err)
	assert.True(t, IsUnexpectedFile(err))
}

func TestSelectorEngine_None_AcceptsText(t *testing.T) {
	t.Parallel()

	cfg, err := newConfig(WithSelector(SelectorNone()))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	d, err := eng.evaluate(textHeaders("name"))
	require.NoError(t, err)
	assert.True(t, d.accept)
}

// ============================================================================
// selectorEngine — Single
// ============================================================================

func TestSelectorEngine_Single_AcceptsOneMatch(t *testing.T) {
	t.Parallel()

	cfg, err := newConfig(WithSelector(SelectorSingle("avatar")))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	d, err := eng.evaluate(fileHeaders("avatar", "me.png", "image/png"))
	require.NoError(t, err)
	assert.True(t, d.accept)
}

func TestSelectorEngine_Single_RejectsSecondMatch(t *testing.T) {
	t.Parallel()

	cfg, err := newConfig(WithSelector(SelectorSingle("avatar")))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	_, err = eng.evaluate(fileHeaders("avatar", "me.png", "image/png"))
	require.NoError(t, err)

	_, err = eng.evaluate(fileHeaders("avatar", "me2.png", "image/png"))
	require.Error(t, err)
	assert.True(t, IsTooManyFiles(err))
}

func TestSelectorEngine_Single_IgnoresUnrelatedFieldByDefault(t *testing.T) {
	t.Parallel()

	cfg, err := newConfig(WithSelector(SelectorSingle("avatar")))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	d, err := eng.evaluate(fileHeaders("other", "x.png", "image/png"))
	require.NoError(t, err)
	assert.False(t, d.accept)
}

func TestSelectorEngine_Single_RejectPolicyRejectsUnrelatedField(t *testing.T) {
	t.Parallel()

	cfg, err := newConfig(WithSelector(SelectorSingle("avatar")), WithUnknownFieldPolicy(UnknownFieldReject))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	_, err = eng.evaluate(fileHeaders("other", "x.png", "image/png"))
	require.Error(t, err)
	assert.True(t, IsUnexpectedFile(err))
}

func TestSelectorEngine_Single_TextFieldsAlwaysSurvive(t *testing.T) {
	t.Parallel()

	// A file selector only ever declares which file field is wanted;
	// text parts are never routed through it, even under the Reject
	// policy or under a name that doesn't match the selector.
	cfg, err := newConfig(WithSelector(SelectorSingle("avatar")), WithUnknownFieldPolicy(UnknownFieldReject))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	d, err := eng.evaluate(textHeaders("username"))
	require.NoError(t, err)
	assert.True(t, d.accept)
}

// ============================================================================
// selectorEngine — Array
// ============================================================================

func TestSelectorEngine_Array_AcceptsUpToMax(t *testing.T) {
	t.Parallel()

	cfg, err := newConfig(WithSelector(SelectorArray("photos", 2)))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	for i := 0; i < 2; i++ {
		d, err := eng.evaluate(fileHeaders("photos", "p.png", "image/png"))
		require.NoError(t, err)
		assert.True(t, d.accept)
	}

	_, err = eng.evaluate(fileHeaders("photos", "p3.png", "image/png"))
	require.Error(t, err)
	assert.True(t, IsTooManyFiles(err))
}

func TestSelectorEngine_Array_TextFieldsAlwaysSurvive(t *testing.T) {
	t.Parallel()

	cfg, err := newConfig(WithSelector(SelectorArray("photos", 2)))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	d, err := eng.evaluate(textHeaders("caption"))
	require.NoError(t, err)
	assert.True(t, d.accept)
}

// ============================================================================
// selectorEngine — Fields
// ============================================================================

func TestSelectorEngine_Fields_EnforcesKindAndMaxCount(t *testing.T) {
	t.Parallel()

	cfg, err := newConfig(WithSelector(SelectorFields(
		Field{Name: "avatar", Kind: FieldKindFile, MaxCount: 1},
		Field{Name: "caption", Kind: FieldKindText, MaxCount: 1},
	)))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	d, err := eng.evaluate(fileHeaders("avatar", "me.png", "image/png"))
	require.NoError(t, err)
	assert.True(t, d.accept)

	d, err = eng.evaluate(textHeaders("caption"))
	require.NoError(t, err)
	assert.True(t, d.accept)

	// wrong kind for a declared field name
	_, err = eng.evaluate(textHeaders("avatar"))
	require.Error(t, err)

	// a second file under a MaxCount: 1 field
	_, err = eng.evaluate(fileHeaders("avatar", "again.png", "image/png"))
	require.Error(t, err)
	assert.True(t, IsTooManyFiles(err))
}

func TestSelectorEngine_Fields_PerFieldMIMEAllowlist(t *testing.T) {
	t.Parallel()

	cfg, err := newConfig(WithSelector(SelectorFields(
		Field{Name: "avatar", Kind: FieldKindFile, MaxCount: 1, AllowedMIMETypes: []string{"image/png"}},
	)))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	_, err = eng.evaluate(fileHeaders("avatar", "me.jpg", "image/jpeg"))
	require.Error(t, err)
	assert.True(t, IsUnsupportedMediaType(err))
}

func TestSelectorEngine_Fields_UnknownFieldIgnoredByDefault(t *testing.T) {
	t.Parallel()

	cfg, err := newConfig(WithSelector(SelectorFields(
		Field{Name: "avatar", Kind: FieldKindFile, MaxCount: 1},
	)))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	d, err := eng.evaluate(textHeaders("extra"))
	require.NoError(t, err)
	assert.False(t, d.accept)
}

// ============================================================================
// selectorEngine — global limits
// ============================================================================

func TestSelectorEngine_GlobalMaxFiles(t *testing.T) {
	t.Parallel()

	cfg, err := newConfig(WithSelector(SelectorAny()), WithMaxFiles(1))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	_, err = eng.evaluate(fileHeaders("a", "a.png", "image/png"))
	require.NoError(t, err)

	_, err = eng.evaluate(fileHeaders("b", "b.png", "image/png"))
	require.Error(t, err)
	assert.True(t, IsTooManyFiles(err))
}

func TestSelectorEngine_GlobalMaxFields(t *testing.T) {
	t.Parallel()

	cfg, err := newConfig(WithSelector(SelectorAny()), WithMaxFields(1))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	_, err = eng.evaluate(textHeaders("a"))
	require.NoError(t, err)

	_, err = eng.evaluate(textHeaders("b"))
	require.Error(t, err)
	assert.True(t, IsTooManyFields(err))
}

func TestSelectorEngine_GlobalMIMEAllowlist(t *testing.T) {
	t.Parallel()

	cfg, err := newConfig(WithSelector(SelectorAny()), WithAllowedMIMETypes("image/*"))
	require.NoError(t, err)
	eng := newSelectorEngine(cfg)

	_, err = eng.evaluate(fileHeaders("a", "a.pdf", "application/pdf"))
	require.Error(t, err)
	assert.True(t, IsUnsupportedMediaType(err))
}
