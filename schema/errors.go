package schema

import "errors"

// ErrSchemaUnavailable is returned by Open when the target index is
// currently being rebuilt and its schema cannot be resolved yet.
var ErrSchemaUnavailable = errors.New("schema: unavailable, index is being rebuilt")

// FieldNotIndexedError reports a reference to a field absent from the
// schema.
type FieldNotIndexedError struct {
	Name FieldName
}

func (e *FieldNotIndexedError) Error() string {
	return "schema: field not indexed: " + string(e.Name)
}

// WrongFieldTypeError reports a field used in a way its declared Type
// cannot support (e.g. a range query against a Str field).
type WrongFieldTypeError struct {
	Name     FieldName
	Expected string
	Got      Type
}

func (e *WrongFieldTypeError) Error() string {
	return "schema: field " + string(e.Name) + " expected " + e.Expected + ", got " + e.Got.String()
}

// DuplicateFieldError reports a field name declared more than once across
// composite members or between a composite and a plain column, the
// diagnostic supplemented from the original composite-indexing source.
type DuplicateFieldError struct {
	Name FieldName
}

func (e *DuplicateFieldError) Error() string {
	return "field defined more than once: " + string(e.Name)
}

// Composite/row-type shape errors, reproduced verbatim from the original
// index-build diagnostics. The core does not implement composite/row
// unpacking; these sentinels exist only so callers assembling a
// SearchField set by hand can surface the same user-visible messages the
// indexing path would.
var (
	ErrAnonymousRowNotSupported    = errors.New("Anonymous ROW not supported")
	ErrDomainOverCompositeNotSupported = errors.New("Domain over composite not supported")
	ErrNestedCompositeNotSupported = errors.New("Nested composite not supported")
)
