package scan

import (
	"fmt"

	"github.com/paradedb-core/searchcore/algebra"
	"github.com/paradedb-core/searchcore/index"
	"github.com/paradedb-core/searchcore/schema"
)

// BuildSnippetGenerators creates one index.Generator per requested
// SnippetType, one per scan, rebuilt at rescan. When joinPredicates is
// non-empty, generators (and generators only — filtering is untouched)
// are built against base wrapped as Boolean{must:[base],
// should:[join_pred...]}, so highlighting still reflects a join
// condition that itself can't narrow the result set.
func BuildSnippetGenerators(reader index.Reader, base algebra.SearchQueryInput, joinPredicates []algebra.SearchQueryInput, snippets []SnippetType) (map[SnippetType]index.Generator, error) {
	scoringQuery := base
	if len(joinPredicates) > 0 {
		scoringQuery = algebra.Boolean{
			Must:   []algebra.SearchQueryInput{base},
			Should: joinPredicates,
		}
	}

	out := make(map[SnippetType]index.Generator, len(snippets))
	for _, s := range snippets {
		gen, err := reader.SnippetGenerator(s.Field, scoringQuery)
		if err != nil {
			return nil, fmt.Errorf("scan: building snippet generator for %s: %w", s.Field, err)
		}
		out[s] = gen
	}
	return out, nil
}

// referencedSnippetFields lists every field a snippet request set
// touches, for schema validation ahead of opening the reader.
func referencedSnippetFields(snippets []SnippetType) []schema.FieldName {
	out := make([]schema.FieldName, len(snippets))
	for i, s := range snippets {
		out[i] = s.Field
	}
	return out
}
