package schema

import "fmt"

// IndexOID identifies a host index. The core treats it as an opaque key;
// the host's catalog owns its meaning.
type IndexOID uint32

// Handle is a resolved, immutable view of one index's field schema. It is
// created once per index open and never mutated afterwards.
type Handle struct {
	oid    IndexOID
	fields map[string]SearchField // keyed by Root() for dotted lookups
}

// Open builds a Handle from an explicit field list. In the full system this
// would be populated from the host's index metadata; the core only depends
// on the result, so callers (index/bleveindex, tests) construct it directly.
func Open(oid IndexOID, fields []SearchField) (*Handle, error) {
	h := &Handle{oid: oid, fields: make(map[string]SearchField, len(fields))}
	for _, f := range fields {
		root := f.Name.Root()
		if existing, ok := h.fields[root]; ok && existing.Name != f.Name {
			return nil, &DuplicateFieldError{Name: f.Name}
		}
		h.fields[root] = f
	}
	return h, nil
}

// OID returns the index this handle was opened for.
func (h *Handle) OID() IndexOID { return h.oid }

// Field resolves a dotted FieldName to its SearchField. The suffix after
// the root is treated as a JSON path and does not require a separate
// schema entry.
func (h *Handle) Field(name FieldName) (SearchField, bool) {
	f, ok := h.fields[name.Root()]
	return f, ok
}

// IsFast reports whether name resolves to a fast field.
func (h *Handle) IsFast(name FieldName) bool {
	f, ok := h.Field(name)
	return ok && f.IsFast
}

// IsSortableRaw reports whether name supports raw-order sort.
func (h *Handle) IsSortableRaw(name FieldName) bool {
	f, ok := h.Field(name)
	return ok && f.IsSortableRaw
}

// IsSortableLower reports whether name supports lowercased sort.
func (h *Handle) IsSortableLower(name FieldName) bool {
	f, ok := h.Field(name)
	return ok && f.IsSortableLower
}

// IsDatetime reports whether name resolves to a Date-typed field.
func (h *Handle) IsDatetime(name FieldName) bool {
	f, ok := h.Field(name)
	return ok && f.IsDatetime()
}

// Fields returns every declared field, for enumeration in EXPLAIN and in
// the bleve mapping builder.
func (h *Handle) Fields() []SearchField {
	out := make([]SearchField, 0, len(h.fields))
	for _, f := range h.fields {
		out = append(out, f)
	}
	return out
}

// FieldRef is the minimal subset of a query node validate_fields needs:
// every field name it mentions, and (for window aggregates) the field an
// aggregate targets.
type FieldRef interface {
	ReferencedFields() []FieldName
}

// ValidateFields checks that every field mentioned by q exists in h,
// returning a *FieldNotIndexedError for the first one that doesn't.
func (h *Handle) ValidateFields(q FieldRef) error {
	for _, name := range q.ReferencedFields() {
		if _, ok := h.Field(name); !ok {
			return &FieldNotIndexedError{Name: name}
		}
	}
	return nil
}

// ValidateFieldSet checks a set of fields assembled for a single composite
// index definition for duplicate names, reproducing the diagnostics the
// real composite/row indexing path would raise.
func ValidateFieldSet(fields []SearchField) error {
	seen := make(map[string]FieldName, len(fields))
	for _, f := range fields {
		root := f.Name.Root()
		if prev, ok := seen[root]; ok {
			return fmt.Errorf("%w (already declared as %s)", &DuplicateFieldError{Name: f.Name}, prev)
		}
		seen[root] = f.Name
	}
	return nil
}
