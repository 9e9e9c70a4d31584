// Package schema resolves field names against the declared search schema of
// an index: the set of names, storage types, analyzer bindings, and fast
// field flags the rest of the core validates queries against.
package schema

import (
	"fmt"
	"strings"
)

// Type enumerates the storage type of a SearchField.
type Type uint8

const (
	TypeStr Type = iota
	TypeI64
	TypeU64
	TypeF64
	TypeBool
	TypeDate
	TypeJSON
	TypeRange
	TypeBytes
	TypeIPAddr
	TypeNumeric64
	TypeNumericBytes
)

func (t Type) String() string {
	switch t {
	case TypeStr:
		return "Str"
	case TypeI64:
		return "I64"
	case TypeU64:
		return "U64"
	case TypeF64:
		return "F64"
	case TypeBool:
		return "Bool"
	case TypeDate:
		return "Date"
	case TypeJSON:
		return "Json"
	case TypeRange:
		return "Range"
	case TypeBytes:
		return "Bytes"
	case TypeIPAddr:
		return "IpAddr"
	case TypeNumeric64:
		return "Numeric64"
	case TypeNumericBytes:
		return "NumericBytes"
	default:
		return "Unknown"
	}
}

// FieldName is a dotted path root[.sub]* identifying a leaf in the index
// schema. Equality is case-sensitive.
type FieldName string

// Root returns the first path component.
func (f FieldName) Root() string {
	if i := strings.IndexByte(string(f), '.'); i >= 0 {
		return string(f)[:i]
	}
	return string(f)
}

// JSONPath returns everything after the root component, or "" if the name
// has no dotted suffix.
func (f FieldName) JSONPath() string {
	i := strings.IndexByte(string(f), '.')
	if i < 0 {
		return ""
	}
	return string(f)[i+1:]
}

func (f FieldName) String() string { return string(f) }

// TokenizerConfig binds a field to an analyzer/tokenizer pipeline. The name
// is resolved by the index reader (bleve's analysis registry in
// index/bleveindex).
type TokenizerConfig struct {
	Name             string
	RemoveLongTokens bool
	MaxTokenLength   int
}

// NumericScale describes the fixed-point scale used by Numeric64 fields.
type NumericScale struct {
	Precision int
	Scale     int
}

// SearchField is the immutable per-field descriptor produced by Open.
type SearchField struct {
	Name            FieldName
	Type            Type
	IsFast          bool
	IsSortableRaw   bool
	IsSortableLower bool
	Tokenizer       TokenizerConfig
	Stored          bool
	NumericScale    NumericScale // only meaningful when Type == TypeNumeric64
}

// IsDatetime reports whether the field's native comparisons are date/time
// comparisons, which changes how range bound exclusivity is canonicalized
// (see algebra.CanonicalizeBound).
func (f SearchField) IsDatetime() bool { return f.Type == TypeDate }

func (f SearchField) String() string {
	return fmt.Sprintf("%s:%s(fast=%v)", f.Name, f.Type, f.IsFast)
}
