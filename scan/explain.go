package scan

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/paradedb-core/searchcore/index"
)

// ExplainTree renders a PrintableTree (index.Index.BuildQueryTreeWithEstimates's
// return) as an indented, colorized tree, the same pairing of
// fatih/color and olekukonko/tablewriter the teacher's
// executor/table_formatter.go uses for query/result output, redirected
// here at EXPLAIN's plan tree instead of a result relation.
func ExplainTree(w io.Writer, tree index.PrintableTree, recursiveEstimates bool) {
	explainNode(w, tree, 0, recursiveEstimates)
}

func explainNode(w io.Writer, node index.PrintableTree, depth int, recursiveEstimates bool) {
	indent := strings.Repeat("  ", depth)
	label := color.CyanString(node.Label)
	if depth == 0 || recursiveEstimates {
		estimate := color.YellowString(fmt.Sprintf("(~%d hits)", node.EstimatedHits))
		fmt.Fprintf(w, "%s%s %s\n", indent, label, estimate)
	} else {
		fmt.Fprintf(w, "%s%s\n", indent, label)
	}
	for _, child := range node.Children {
		explainNode(w, child, depth+1, recursiveEstimates)
	}
}

// ExplainSummary is the per-scan statistics line EXPLAIN ANALYZE adds
// alongside the plan tree: rows emitted, queries issued against I, and
// the chosen exec method.
type ExplainSummary struct {
	Method       ExecMethodType
	RowsEmitted  int
	QueriesIssued int
	Selectivity  Selectivity
}

// FormatExplainSummary renders one Driver's run as a two-column table,
// grounded on table_formatter.go's FormatRelation/formatTable pairing of
// tablewriter with the markdown renderer.
func FormatExplainSummary(w io.Writer, s ExplainSummary) {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"metric", "value"})
	table.Append([]string{"exec method", methodName(s.Method)})
	table.Append([]string{"rows emitted", fmt.Sprint(s.RowsEmitted)})
	table.Append([]string{"queries issued", fmt.Sprint(s.QueriesIssued)})
	table.Append([]string{"selectivity", fmt.Sprintf("%.4f (%s)", s.Selectivity.Value, selectivityKindName(s.Selectivity.Kind))})
	table.Render()
}

func methodName(m ExecMethodType) string {
	switch m {
	case MethodNormal:
		return "Normal"
	case MethodTopN:
		return "TopN"
	case MethodFastFieldMixed:
		return "FastFieldMixed"
	default:
		return "Unknown"
	}
}

func selectivityKindName(k SelectivityKind) string {
	switch k {
	case SelectivityNormSelec:
		return "norm_selec"
	case SelectivityFull:
		return "full"
	case SelectivityParameterized:
		return "parameterized"
	case SelectivityEstimated:
		return "estimated"
	default:
		return "unknown"
	}
}
