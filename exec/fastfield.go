package exec

import (
	"context"
	"fmt"

	"github.com/paradedb-core/searchcore/index"
	"github.com/paradedb-core/searchcore/schema"
)

// FastFieldMixed materializes a row entirely from the fast-field values I
// attaches to each hit, skipping the heap fetch (and, downstream in X, the
// visibility-map all-visible fast path still applies for a cheap
// visibility check, but no tuple bytes are read). It is only valid when
// every column the target list and residual quals reference is one of
// fields, plus score/ctid/tableoid. This type does not check that; the
// scan driver picks it whenever the plan lists any planned fast fields.
type FastFieldMixed struct {
	stream index.Stream
	fields []schema.FieldName
	queries int
	done   bool
}

// NewFastFieldMixed opens an unordered stream and binds the set of fast
// fields the projection needs.
func NewFastFieldMixed(ctx context.Context, reader index.Reader, fields []schema.FieldName) (*FastFieldMixed, error) {
	stream, err := reader.IterCollect(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("exec: opening fast-field stream: %w", err)
	}
	return &FastFieldMixed{stream: stream, fields: fields, queries: 1}, nil
}

func (f *FastFieldMixed) Next(ctx context.Context) (ExecState, error) {
	if f.done {
		return Eof{}, nil
	}
	hit, ok, err := f.stream.Next(ctx)
	if err != nil {
		return nil, fmt.Errorf("exec: FastFieldMixed.Next: %w", err)
	}
	if !ok {
		f.done = true
		return Eof{}, nil
	}
	slot := make(map[schema.FieldName]any, len(f.fields))
	for _, name := range f.fields {
		v, ok := hit.Fields[string(name)]
		if !ok {
			return nil, fmt.Errorf("exec: FastFieldMixed.Next: hit missing fast field %q the projection requires", name)
		}
		slot[name] = v
	}
	return Virtual{Slot: slot}, nil
}

func (f *FastFieldMixed) QueriesIssued() int { return f.queries }
