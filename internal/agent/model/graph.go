package model

// GradeDecision is the grader's verdict on a retrieved block.
type GradeDecision string

const (
	GradeRelevant    GradeDecision = "relevant"
	GradeNotRelevant GradeDecision = "not_relevant"
)

// TurnState stores per-turn state for the graph.
// Concurrency model:
//   - This struct is registered as Graph Local State via compose.WithGenLocalState.
//   - All reads/writes happen only inside state handlers
//     (WithStatePreHandler, WithStatePostHandler) or compose.ProcessState,
//     which the graph runtime serializes. No extra locking is needed as
//     long as the state is never touched outside handlers.
type TurnState struct {
	ThreadID string
	Question string // the question that opened this turn; grading and
	// answer assembly always refer back to it, even after rewrites

	Context string        // most recent retrieved block, empty on the direct-respond path
	Grade   GradeDecision // set by the grade node, read by its branch

	RewriteCount        int  // maintained in the rewrite node pre-handler
	RewriteLimitReached bool // set when the rewrite budget is exhausted
}

// QueryInput is the caller-facing input for one turn.
type QueryInput struct {
	ThreadID string `json:"thread_id"`
	Question string `json:"question"`
}
