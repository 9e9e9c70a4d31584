package bleveindex

import (
	"context"

	"github.com/blevesearch/bleve/v2"

	"github.com/paradedb-core/searchcore/index"
)

// sliceStream adapts one already-materialized bleve.SearchResult into
// index.Stream's pull interface. A production segment reader would page
// internally instead of buffering a whole batch, but I.iter_collect/
// iter_topn are both already bounded by limit/n at the call site.
type sliceStream struct {
	hits []index.Hit
	pos  int
}

func newSliceStream(result *bleve.SearchResult) (*sliceStream, error) {
	hits := make([]index.Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		rowID, err := decodeRowID(h.ID)
		if err != nil {
			return nil, err
		}
		hits = append(hits, index.Hit{RowID: rowID, Score: float32(h.Score), Fields: h.Fields})
	}
	return &sliceStream{hits: hits}, nil
}

func (s *sliceStream) Next(ctx context.Context) (index.Hit, bool, error) {
	if s.pos >= len(s.hits) {
		return index.Hit{}, false, nil
	}
	h := s.hits[s.pos]
	s.pos++
	return h, true, nil
}

func (s *sliceStream) Close() error { return nil }
