package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenResolvesDottedNames(t *testing.T) {
	h, err := Open(1, []SearchField{
		{Name: "description", Type: TypeStr, Stored: true},
		{Name: "metadata", Type: TypeJSON, IsFast: true},
	})
	require.NoError(t, err)

	f, ok := h.Field("metadata.color")
	require.True(t, ok)
	assert.Equal(t, FieldName("metadata"), f.Name)
	assert.True(t, h.IsFast("metadata.color"))
	assert.False(t, h.IsFast("description"))
}

func TestOpenRejectsDuplicateRoots(t *testing.T) {
	_, err := Open(1, []SearchField{
		{Name: "price", Type: TypeI64},
		{Name: "price", Type: TypeF64},
	})
	require.Error(t, err)
	var dup *DuplicateFieldError
	assert.ErrorAs(t, err, &dup)
}

type fakeFieldRef struct{ names []FieldName }

func (f fakeFieldRef) ReferencedFields() []FieldName { return f.names }

func TestValidateFieldsReportsMissingField(t *testing.T) {
	h, err := Open(1, []SearchField{{Name: "description", Type: TypeStr}})
	require.NoError(t, err)

	assert.NoError(t, h.ValidateFields(fakeFieldRef{names: []FieldName{"description"}}))

	err = h.ValidateFields(fakeFieldRef{names: []FieldName{"rating"}})
	require.Error(t, err)
	var notIndexed *FieldNotIndexedError
	assert.ErrorAs(t, err, &notIndexed)
	assert.Equal(t, FieldName("rating"), notIndexed.Name)
}

func TestValidateFieldSetDuplicate(t *testing.T) {
	err := ValidateFieldSet([]SearchField{
		{Name: "name", Type: TypeStr},
		{Name: "name", Type: TypeStr},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field defined more than once")
}
