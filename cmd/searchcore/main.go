// Command searchcore is a small demo/REPL harness wiring Q (package
// compiler) through X (package scan) and E (package exec) against a
// reference bleve-backed index, plus a leader/worker transport demo. It
// exists to exercise the pipeline end to end outside of any host
// database, the way cmd/datalog exercises the teacher's query engine
// against a standalone embedded database.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/sync/errgroup"

	"github.com/paradedb-core/searchcore/compiler"
	"github.com/paradedb-core/searchcore/index"
	"github.com/paradedb-core/searchcore/index/bleveindex"
	"github.com/paradedb-core/searchcore/qual"
	"github.com/paradedb-core/searchcore/scan"
	"github.com/paradedb-core/searchcore/schema"
	"github.com/paradedb-core/searchcore/transport"
	"github.com/paradedb-core/searchcore/transport/signal"
	"github.com/paradedb-core/searchcore/visibility"
)

// ourOperator is the pushdown operator symbol this demo registers.
const ourOperator = "@@@"

func main() {
	var interactive bool
	var help bool
	var verbose bool
	var queryStr string
	var fanoutWorkers int

	flag.BoolVar(&interactive, "i", false, "interactive mode (read WHERE clauses from stdin)")
	flag.BoolVar(&help, "h", false, "show help")
	flag.BoolVar(&verbose, "verbose", false, "also print the EXPLAIN summary for each query")
	flag.StringVar(&queryStr, "query", "", "run a single WHERE-clause query and exit")
	flag.IntVar(&fanoutWorkers, "fanout", 0, "run the leader/worker transport demo with this many workers, then exit")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Drives the search core's compile/scan/exec pipeline against an in-memory demo index.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                  # run the canned demo queries\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -i                               # interactive WHERE-clause REPL\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -query \"title @@@ 'rust'\"        # run a single query\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -fanout 3                        # leader/worker transport demo\n", os.Args[0])
	}
	flag.Parse()

	if help {
		flag.Usage()
		os.Exit(0)
	}

	if fanoutWorkers > 0 {
		if err := runFanoutDemo(context.Background(), fanoutWorkers); err != nil {
			log.Fatalf("fanout demo: %v", err)
		}
		return
	}

	schemaHandle, err := buildSchema()
	if err != nil {
		log.Fatalf("building schema: %v", err)
	}
	ix, err := bleveindex.Open(schemaHandle)
	if err != nil {
		log.Fatalf("opening index: %v", err)
	}
	heap := newMemHeap()
	if err := seedIndex(ix, heap); err != nil {
		log.Fatalf("seeding index: %v", err)
	}

	ctx := context.Background()
	switch {
	case queryStr != "":
		runSingleQuery(ctx, ix, schemaHandle, heap, queryStr, verbose)
	case interactive:
		runInteractive(ctx, ix, schemaHandle, heap, verbose)
	default:
		runDemo(ctx, ix, schemaHandle, heap, verbose)
	}
}

// buildSchema declares the demo index's fields. All four are marked fast
// so the demo always qualifies for exec.FastFieldMixed, and every query
// prints a fully materialized row without a heap collaborator.
func buildSchema() (*schema.Handle, error) {
	fields := []schema.SearchField{
		{Name: "title", Type: schema.TypeStr, IsFast: true, Stored: true, Tokenizer: schema.TokenizerConfig{Name: "standard"}},
		{Name: "body", Type: schema.TypeStr, IsFast: true, Stored: true, Tokenizer: schema.TokenizerConfig{Name: "standard"}},
		{Name: "rating", Type: schema.TypeF64, IsFast: true, IsSortableRaw: true, Stored: true},
		{Name: "featured", Type: schema.TypeBool, IsFast: true, Stored: true},
	}
	return schema.Open(schema.IndexOID(1), fields)
}

type demoDoc struct {
	Title    string
	Body     string
	Rating   float64
	Featured bool
}

var demoDocs = []demoDoc{
	{Title: "Rust ownership explained", Body: "borrow checker lifetimes moves", Rating: 4.8, Featured: true},
	{Title: "Getting started with Go", Body: "goroutines channels interfaces", Rating: 4.5, Featured: true},
	{Title: "Postgres indexing internals", Body: "btree gin gist access methods", Rating: 4.2, Featured: false},
	{Title: "A gentle intro to Bleve", Body: "inverted index analyzers tokenizers", Rating: 3.9, Featured: false},
	{Title: "Shared memory transports", Body: "ring buffers mmap lock free queues", Rating: 4.6, Featured: true},
}

// seedIndex loads demoDocs into ix and marks every row visible and
// committed in heap, standing in for the host's own already-committed
// rows; real heap/tuple storage lives outside this core.
func seedIndex(ix *bleveindex.Index, heap *memHeap) error {
	for i, d := range demoDocs {
		row := index.RowID{Block: uint32(i), Offset: 0}
		fields := map[string]any{
			"title":    d.Title,
			"body":     d.Body,
			"rating":   d.Rating,
			"featured": d.Featured,
		}
		if err := ix.Put(row, fields); err != nil {
			return fmt.Errorf("indexing row %d: %w", i, err)
		}
		heap.commit(row, map[schema.FieldName]any{
			"title":    d.Title,
			"body":     d.Body,
			"rating":   d.Rating,
			"featured": d.Featured,
		})
	}
	return nil
}

// memHeap is the reference visibility.Heap collaborator: every row this
// demo ever seeds is already committed and all-visible, so V's fast path
// always applies.
type memHeap struct {
	headers map[index.RowID]visibility.TupleHeader
}

func newMemHeap() *memHeap {
	return &memHeap{headers: make(map[index.RowID]visibility.TupleHeader)}
}

func (h *memHeap) commit(row index.RowID, values map[schema.FieldName]any) {
	h.headers[row] = visibility.TupleHeader{Xmin: 1, Values: values}
}

func (h *memHeap) Fetch(row index.RowID) (visibility.TupleHeader, bool) {
	th, ok := h.headers[row]
	return th, ok
}

func (h *memHeap) AllVisible(index.RowID) bool { return true }

// demoSnapshot is a snapshot that sees everything committed by seedIndex.
func demoSnapshot() visibility.Snapshot {
	return visibility.Snapshot{Xmax: ^uint64(0)}
}

// allFastFields is every field this demo's schema declares, handed to
// PrivateData.PlannedFastFields so the driver always binds
// exec.FastFieldMixed.
func allFastFields(h *schema.Handle) map[schema.FieldName]bool {
	out := make(map[schema.FieldName]bool)
	for _, f := range h.Fields() {
		out[f.Name] = true
	}
	return out
}

var targetList = []scan.Column{
	{OutputName: "title", Field: "title"},
	{OutputName: "rating", Field: "rating"},
	{OutputName: "featured", Field: "featured"},
	{OutputName: "score", IsScore: true},
}

func runDemo(ctx context.Context, ix *bleveindex.Index, schemaHandle *schema.Handle, heap *memHeap, verbose bool) {
	fmt.Println("=== searchcore demo ===")
	queries := []string{
		"title @@@ 'rust'",
		"title @@@ 'rust' OR title @@@ 'go'",
		"featured = true",
	}
	for _, q := range queries {
		fmt.Printf("\n-- %s\n", q)
		runSingleQuery(ctx, ix, schemaHandle, heap, q, verbose)
	}
}

func runInteractive(ctx context.Context, ix *bleveindex.Index, schemaHandle *schema.Handle, heap *memHeap, verbose bool) {
	fmt.Println("searchcore interactive mode. Enter a WHERE-clause expression, or 'explain <expr>'. Ctrl-D to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "explain "); ok {
			runExplain(ix, schemaHandle, rest)
			continue
		}
		runSingleQuery(ctx, ix, schemaHandle, heap, line, verbose)
	}
}

// compileWhereClause is Q end to end: parse, compile to a Qual.
func compileWhereClause(schemaHandle *schema.Handle, whereExpr string) (qual.Qual, error) {
	node, err := compiler.FromPostgresWhereClause(whereExpr, ourOperator, map[string]bool{"pdb_score": true})
	if err != nil {
		return nil, err
	}
	opts := compiler.Options{Relation: "t", AllowFilterPushdown: true, OurOperator: ourOperator}
	q, _, ok := compiler.Compile(opts, schemaHandle, node)
	if !ok {
		return nil, fmt.Errorf("compiler declined clause %q entirely", whereExpr)
	}
	return q, nil
}

func runSingleQuery(ctx context.Context, ix *bleveindex.Index, schemaHandle *schema.Handle, heap *memHeap, whereExpr string, verbose bool) {
	q, err := compileWhereClause(schemaHandle, whereExpr)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	algebraQuery, err := qual.Lower(q)
	if err != nil {
		fmt.Printf("error: lowering qual: %v\n", err)
		return
	}

	private := scan.PrivateData{
		Query:             algebraQuery,
		TargetList:        targetList,
		NeedScore:         true,
		ExecMethodType:    scan.MethodFastFieldMixed,
		PlannedFastFields: allFastFields(schemaHandle),
	}
	driver := scan.NewDriver(ix, heap, private, scan.Options{EnableFilterPushdown: true})
	rows, err := drainDriver(ctx, driver)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	printRows(os.Stdout, rows)

	if verbose {
		sel := scan.EstimateSelectivity(ix, algebraQuery, nil, false, false)
		scan.FormatExplainSummary(os.Stdout, scan.ExplainSummary{
			Method:        scan.MethodFastFieldMixed,
			RowsEmitted:   driver.RowsEmitted(),
			QueriesIssued: driver.QueriesIssued(),
			Selectivity:   sel,
		})
	}
}

func drainDriver(ctx context.Context, driver *scan.Driver) ([]scan.Row, error) {
	if err := driver.Begin(demoSnapshot(), false); err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	if err := driver.InitSearchReader(ctx, nil); err != nil {
		_ = driver.End()
		return nil, fmt.Errorf("init search reader: %w", err)
	}
	var rows []scan.Row
	for {
		row, err := driver.Next(ctx)
		if err != nil {
			_ = driver.End()
			return nil, fmt.Errorf("next: %w", err)
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}
	if err := driver.End(); err != nil {
		return rows, fmt.Errorf("end: %w", err)
	}
	return rows, nil
}

func printRows(w io.Writer, rows []scan.Row) {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"title", "rating", "featured", "score"})
	for _, row := range rows {
		table.Append([]string{
			fmt.Sprint(row["title"]),
			fmt.Sprint(row["rating"]),
			fmt.Sprint(row["featured"]),
			fmt.Sprintf("%.4f", row["score"]),
		})
	}
	table.Render()
	fmt.Printf("(%d rows)\n", len(rows))
}

func runExplain(ix *bleveindex.Index, schemaHandle *schema.Handle, whereExpr string) {
	q, err := compileWhereClause(schemaHandle, whereExpr)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	algebraQuery, err := qual.Lower(q)
	if err != nil {
		fmt.Printf("error: lowering qual: %v\n", err)
		return
	}
	tree, err := ix.BuildQueryTreeWithEstimates(algebraQuery)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	scan.ExplainTree(os.Stdout, tree, true)
}

// runFanoutDemo demonstrates T: one leader reading results signalled back
// from n independent workers, fanned out and awaited with errgroup the
// way a real parallel custom scan's leader would await its workers
// instead of hand-rolling a WaitGroup and error channel.
func runFanoutDemo(ctx context.Context, workers int) error {
	session := uuid.New()
	leaderID := signal.ParticipantID(0)

	leaderBridge, err := signal.New(session, leaderID)
	if err != nil {
		return fmt.Errorf("binding leader signal bridge: %w", err)
	}
	defer leaderBridge.Close()

	regions := make([]*transport.Region, workers)
	defer func() {
		for _, r := range regions {
			if r != nil {
				_ = r.Close()
			}
		}
	}()
	for i := range regions {
		region, err := transport.NewRegion(transport.Layout{DataCapacity: 4096, ControlCapacity: 256})
		if err != nil {
			return fmt.Errorf("allocating region for worker %d: %w", i, err)
		}
		regions[i] = region
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			return runFanoutWorker(gctx, session, leaderID, regions[i], i)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("worker fan-out: %w", err)
	}

	// By the time g.Wait returns every worker has already signalled the
	// leader and closed its stream, so the leader can read each region's
	// result without blocking on leaderBridge.Wait.
	for i := 0; i < workers; i++ {
		workerID := signal.ParticipantID(i + 1)
		stream := transport.NewPhysicalStreamID(0, workerID)
		reader := transport.NewReader(regions[i], leaderBridge, workerID)
		frame, err := reader.ReadForStream(stream, true)
		if err != nil {
			return fmt.Errorf("reading worker %d's result: %w", i, err)
		}
		var payload map[string]any
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			return fmt.Errorf("decoding worker %d's payload: %w", i, err)
		}
		fmt.Printf("worker %d reported: %v\n", i, payload)
		if _, err := reader.ReadForStream(stream, true); err != nil && !errors.Is(err, transport.ErrEOF) {
			return fmt.Errorf("draining worker %d's end-of-stream marker: %w", i, err)
		}
	}
	return nil
}

func runFanoutWorker(ctx context.Context, session uuid.UUID, leaderID signal.ParticipantID, region *transport.Region, workerIdx int) error {
	workerID := signal.ParticipantID(workerIdx + 1)
	bridge, err := signal.New(session, workerID)
	if err != nil {
		return fmt.Errorf("worker %d: binding signal bridge: %w", workerIdx, err)
	}
	defer bridge.Close()

	writer := transport.NewWriter(region, bridge, leaderID)
	stream := transport.NewPhysicalStreamID(0, workerID)

	payload, err := json.Marshal(map[string]any{"worker": workerIdx, "rows_scanned": 100 * (workerIdx + 1)})
	if err != nil {
		return fmt.Errorf("worker %d: encoding result: %w", workerIdx, err)
	}
	if err := writer.WriteMessage(stream, payload); err != nil {
		return fmt.Errorf("worker %d: writing result: %w", workerIdx, err)
	}
	return writer.CloseStream(stream)
}
