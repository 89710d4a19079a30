package agent

import "fmt"

// Node is one stage of the generation state machine.
type Node string

const (
	NodeAnalyzeGaps Node = "analyze_gaps"
	NodeBuildPrompt Node = "build_prompt"
	NodeGenerate    Node = "generate"
	NodeQualityGate Node = "quality_gate"
	NodeFix         Node = "fix"
	NodeEnd         Node = "end"
)

// Condition is the outcome a node reports to the transition table.
type Condition string

const (
	// CondDone: the node completed; proceed to the next stage.
	CondDone Condition = "done"
	// CondPass: the quality gate accepted the document.
	CondPass Condition = "pass"
	// CondFailRetry: a failed attempt with retry budget remaining.
	CondFailRetry Condition = "fail_retry"
	// CondFailExhausted: a failed attempt with no budget left.
	CondFailExhausted Condition = "fail_exhausted"
)

// MaxRetries is the repair budget: at most MaxRetries fix cycles, so
// MaxRetries+1 total generation attempts.
const MaxRetries = 2

// transitions is the full state machine. Strictly sequential except for
// the single back-edge from fix to the quality gate.
var transitions = map[Node]map[Condition]Node{
	NodeAnalyzeGaps: {
		CondDone: NodeBuildPrompt,
	},
	NodeBuildPrompt: {
		CondDone: NodeGenerate,
	},
	NodeGenerate: {
		CondDone: NodeQualityGate,
		// A failed generation call consumes a retry slot via fix
		// rather than sending an empty document through the gate.
		CondFailRetry:     NodeFix,
		CondFailExhausted: NodeEnd,
	},
	NodeQualityGate: {
		CondPass:          NodeEnd,
		CondFailRetry:     NodeFix,
		CondFailExhausted: NodeEnd,
	},
	NodeFix: {
		CondDone: NodeQualityGate,
	},
}

// next resolves one transition.
func next(node Node, cond Condition) (Node, error) {
	edges, ok := transitions[node]
	if !ok {
		return "", fmt.Errorf("no transitions from node %q", node)
	}
	to, ok := edges[cond]
	if !ok {
		return "", fmt.Errorf("no transition from node %q on condition %q", node, cond)
	}
	return to, nil
}
