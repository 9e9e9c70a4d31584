// Package bleveindex implements index.Index against blevesearch/bleve/v2,
// the concrete inverted-index collaborator this
// core is built to drive. Grounded on Aman-CERP-amanmcp/internal/store/
// bm25.go's createIndexMapping/Index/Search for how a bleve index is
// built, populated, and queried in Go.
package bleveindex

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/paradedb-core/searchcore/schema"
)

// rowIDField stores the encoded RowID alongside the document so search
// hits can be translated back to index.RowID without re-parsing the
// bleve document ID string on every hit.
const rowIDField = "_row_id"

// BuildMapping translates a schema.Handle into a bleve index mapping: one
// document mapping with one field mapping per declared SearchField,
// mirroring createIndexMapping's single default document type.
func BuildMapping(h *schema.Handle) (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()

	for _, f := range h.Fields() {
		fm, err := fieldMapping(f)
		if err != nil {
			return nil, fmt.Errorf("bleveindex: field %s: %w", f.Name, err)
		}
		doc.AddFieldMappingsAt(f.Name.Root(), fm)
	}

	rowID := bleve.NewTextFieldMapping()
	rowID.Index = false
	rowID.Store = true
	doc.AddFieldMappingsAt(rowIDField, rowID)

	im.DefaultMapping = doc
	return im, nil
}

func fieldMapping(f schema.SearchField) (*mapping.FieldMapping, error) {
	switch f.Type {
	case schema.TypeStr, schema.TypeJSON, schema.TypeBytes, schema.TypeIPAddr, schema.TypeRange, schema.TypeNumericBytes:
		fm := bleve.NewTextFieldMapping()
		if f.Tokenizer.Name != "" {
			fm.Analyzer = f.Tokenizer.Name
		}
		fm.Store = f.Stored
		fm.DocValues = f.IsFast
		return fm, nil
	case schema.TypeI64, schema.TypeU64, schema.TypeF64, schema.TypeNumeric64:
		fm := bleve.NewNumericFieldMapping()
		fm.Store = f.Stored
		fm.DocValues = f.IsFast
		return fm, nil
	case schema.TypeBool:
		fm := bleve.NewBooleanFieldMapping()
		fm.Store = f.Stored
		fm.DocValues = true
		return fm, nil
	case schema.TypeDate:
		fm := bleve.NewDateTimeFieldMapping()
		fm.Store = f.Stored
		fm.DocValues = f.IsFast
		return fm, nil
	default:
		return nil, fmt.Errorf("unrecognized field type %s", f.Type)
	}
}
