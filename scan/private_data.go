package scan

import (
	"encoding/json"
	"fmt"

	"github.com/paradedb-core/searchcore/algebra"
	"github.com/paradedb-core/searchcore/index"
	"github.com/paradedb-core/searchcore/schema"
)

// Column is one entry of the host's projection target list: the output
// name plus, for fast-field-eligible columns, the schema field it reads
// from.
type Column struct {
	OutputName string
	Field      schema.FieldName // empty for score/ctid/tableoid/literal columns
	IsScore    bool
	IsCtid     bool
}

// SnippetForm distinguishes the three snippet-producing scalar helpers:
// snippet(), snippets(), snippet_positions().
type SnippetForm uint8

const (
	SnippetText SnippetForm = iota
	SnippetArray
	SnippetPositions
)

// SnippetType names one requested snippet projection: which field, which
// form, and (for SnippetText/SnippetArray) which tags to substitute for
// bleve's <mark> highlighter.
type SnippetType struct {
	Field    schema.FieldName
	Form     SnippetForm
	StartTag string
	EndTag   string
}

// WindowAggregate is one pdb.agg()-rewritten window_agg() call in the
// target list; FieldSpec is the opaque json_spec argument.
type WindowAggregate struct {
	OutputName string
	FieldSpec  json.RawMessage
}

// PrivateData is the serializable plan-node payload: everything the
// planner decides that the executor needs to reopen the same plan across
// a round-trip through the host's opaque plan-node string.
type PrivateData struct {
	HeapOID           uint32
	IndexOID          schema.IndexOID
	RTI               int
	Query             algebra.SearchQueryInput
	Limit             *int
	SegmentCount      int
	OrderByInfo       []index.OrderBy
	ExecMethodType    ExecMethodType
	PlannedFastFields map[schema.FieldName]bool
	VarAttnameLookup  map[string]schema.FieldName
	JoinPredicates    []algebra.SearchQueryInput
	WindowAggregates  []WindowAggregate
	TargetList        []Column
	TargetListLen     int
	AmbulkdeleteEpoch uint64
	Snippets          []SnippetType
	NeedScore         bool
}

// privateDataWire is PrivateData's JSON-serializable shadow: algebra
// queries need algebra.Serialize/Deserialize rather than plain
// encoding/json, and map keys must round-trip through strings.
type privateDataWire struct {
	HeapOID           uint32                 `json:"heap_oid"`
	IndexOID          schema.IndexOID        `json:"index_oid"`
	RTI               int                    `json:"rti"`
	Query             string                 `json:"query"`
	Limit             *int                   `json:"limit,omitempty"`
	SegmentCount      int                    `json:"segment_count"`
	OrderByInfo       []wireOrderBy          `json:"orderby_info,omitempty"`
	ExecMethodType    ExecMethodType         `json:"exec_method_type"`
	PlannedFastFields []schema.FieldName     `json:"planned_fast_fields,omitempty"`
	VarAttnameLookup  map[string]schema.FieldName `json:"var_attname_lookup,omitempty"`
	JoinPredicates    []string               `json:"join_predicates,omitempty"`
	WindowAggregates  []WindowAggregate      `json:"window_aggregates,omitempty"`
	TargetList        []Column               `json:"target_list,omitempty"`
	TargetListLen     int                    `json:"target_list_len"`
	AmbulkdeleteEpoch uint64                 `json:"ambulkdelete_epoch"`
	Snippets          []SnippetType          `json:"snippets,omitempty"`
	NeedScore         bool                   `json:"need_score"`
}

type wireOrderBy struct {
	IsScore   bool             `json:"is_score"`
	Field     schema.FieldName `json:"field,omitempty"`
	Direction index.SortDirection `json:"direction"`
}

// Serialize renders p to its canonical opaque textual form for embedding
// in a host plan node; Deserialize must recover a value-equal PrivateData.
func Serialize(p PrivateData) (string, error) {
	queryStr, err := algebra.Serialize(p.Query)
	if err != nil {
		return "", fmt.Errorf("scan: serialize query: %w", err)
	}

	joins := make([]string, len(p.JoinPredicates))
	for i, jp := range p.JoinPredicates {
		s, err := algebra.Serialize(jp)
		if err != nil {
			return "", fmt.Errorf("scan: serialize join predicate %d: %w", i, err)
		}
		joins[i] = s
	}

	orderBy := make([]wireOrderBy, len(p.OrderByInfo))
	for i, ob := range p.OrderByInfo {
		orderBy[i] = wireOrderBy{IsScore: ob.Feature.IsScore, Field: ob.Feature.Field, Direction: ob.Direction}
	}

	fastFields := make([]schema.FieldName, 0, len(p.PlannedFastFields))
	for f := range p.PlannedFastFields {
		fastFields = append(fastFields, f)
	}

	wire := privateDataWire{
		HeapOID:           p.HeapOID,
		IndexOID:          p.IndexOID,
		RTI:               p.RTI,
		Query:             queryStr,
		Limit:             p.Limit,
		SegmentCount:      p.SegmentCount,
		OrderByInfo:       orderBy,
		ExecMethodType:    p.ExecMethodType,
		PlannedFastFields: fastFields,
		VarAttnameLookup:  p.VarAttnameLookup,
		JoinPredicates:    joins,
		WindowAggregates:  p.WindowAggregates,
		TargetList:        p.TargetList,
		TargetListLen:     p.TargetListLen,
		AmbulkdeleteEpoch: p.AmbulkdeleteEpoch,
		Snippets:          p.Snippets,
		NeedScore:         p.NeedScore,
	}
	buf, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("scan: serialize private data: %w", err)
	}
	return string(buf), nil
}

// Deserialize parses the form Serialize produces.
func Deserialize(s string) (PrivateData, error) {
	var wire privateDataWire
	if err := json.Unmarshal([]byte(s), &wire); err != nil {
		return PrivateData{}, fmt.Errorf("scan: deserialize private data: %w", err)
	}

	query, err := algebra.Deserialize(wire.Query)
	if err != nil {
		return PrivateData{}, fmt.Errorf("scan: deserialize query: %w", err)
	}
	joins := make([]algebra.SearchQueryInput, len(wire.JoinPredicates))
	for i, s := range wire.JoinPredicates {
		q, err := algebra.Deserialize(s)
		if err != nil {
			return PrivateData{}, fmt.Errorf("scan: deserialize join predicate %d: %w", i, err)
		}
		joins[i] = q
	}
	orderBy := make([]index.OrderBy, len(wire.OrderByInfo))
	for i, ob := range wire.OrderByInfo {
		orderBy[i] = index.OrderBy{
			Feature:   index.Feature{IsScore: ob.IsScore, Field: ob.Field},
			Direction: ob.Direction,
		}
	}
	fastFields := make(map[schema.FieldName]bool, len(wire.PlannedFastFields))
	for _, f := range wire.PlannedFastFields {
		fastFields[f] = true
	}

	return PrivateData{
		HeapOID:           wire.HeapOID,
		IndexOID:          wire.IndexOID,
		RTI:               wire.RTI,
		Query:             query,
		Limit:             wire.Limit,
		SegmentCount:      wire.SegmentCount,
		OrderByInfo:       orderBy,
		ExecMethodType:    wire.ExecMethodType,
		PlannedFastFields: fastFields,
		VarAttnameLookup:  wire.VarAttnameLookup,
		JoinPredicates:    joins,
		WindowAggregates:  wire.WindowAggregates,
		TargetList:        wire.TargetList,
		TargetListLen:     wire.TargetListLen,
		AmbulkdeleteEpoch: wire.AmbulkdeleteEpoch,
		Snippets:          wire.Snippets,
		NeedScore:         wire.NeedScore,
	}, nil
}
