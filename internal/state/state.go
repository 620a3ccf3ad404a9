// Package state defines the shared WorkflowState record threaded through
// every node in the engine's graph, plus the shallow last-writer-wins merge
// used to apply a node's returned Patch.
package state

// WorkflowState is the record carried between nodes. Fields are optional;
// a node reads what it needs and returns only the fields it changes via a
// Patch. Extra is an escape hatch for workflow-specific data that doesn't
// warrant a first-class field.
type WorkflowState struct {
	ThreadID   string
	Workflow   string
	Node       string
	Iteration  int
	MaxIters   int
	Input      string
	Draft      string
	ReviewNote string
	Approved   bool
	Errors     []string
	Done       bool
	Extra      map[string]interface{}
}

// Patch is a partial WorkflowState returned by a node. Because WorkflowState
// has no pointer fields, Patch reuses the same struct shape plus Touched, the
// set of field names passed to Set, and ExtraPatch, the Extra keys to merge,
// so merging never clobbers fields or keys the node didn't touch.
type Patch struct {
	State      WorkflowState
	Touched    map[string]bool
	ExtraPatch map[string]interface{}
}

// NewPatch builds an empty Patch.
func NewPatch() *Patch {
	return &Patch{Touched: map[string]bool{}, ExtraPatch: map[string]interface{}{}}
}

// Set marks field as touched with the given value, to be applied on top of
// the prior state. Recognized field names are Draft, ReviewNote, Approved,
// Done, Iteration and Node; any other name sets no value.
func (p *Patch) Set(field string, value interface{}) *Patch {
	p.Touched[field] = true
	switch field {
	case "Draft":
		p.State.Draft = value.(string)
	case "ReviewNote":
		p.State.ReviewNote = value.(string)
	case "Approved":
		p.State.Approved = value.(bool)
	case "Done":
		p.State.Done = value.(bool)
	case "Iteration":
		p.State.Iteration = value.(int)
	case "Node":
		p.State.Node = value.(string)
	}
	return p
}

// SetExtra stages key=value for the Extra map.
func (p *Patch) SetExtra(key string, value interface{}) *Patch {
	p.ExtraPatch[key] = value
	return p
}

// AppendError stages an error message to append to State.Errors.
func (p *Patch) AppendError(msg string) *Patch {
	p.State.Errors = append(p.State.Errors, msg)
	p.Touched["Errors"] = true
	return p
}

// Apply merges patch onto prev, last-writer-wins per touched field, and
// returns the new state. prev is never mutated.
func Apply(prev WorkflowState, patch *Patch) WorkflowState {
	next := prev
	if patch == nil {
		return next
	}

	if patch.Touched["Draft"] {
		next.Draft = patch.State.Draft
	}
	if patch.Touched["ReviewNote"] {
		next.ReviewNote = patch.State.ReviewNote
	}
	if patch.Touched["Approved"] {
		next.Approved = patch.State.Approved
	}
	if patch.Touched["Done"] {
		next.Done = patch.State.Done
	}
	if patch.Touched["Iteration"] {
		next.Iteration = patch.State.Iteration
	}
	if patch.Touched["Node"] {
		next.Node = patch.State.Node
	}
	if patch.Touched["Errors"] {
		next.Errors = append(append([]string{}, prev.Errors...), patch.State.Errors...)
	}

	if len(patch.ExtraPatch) > 0 {
		merged := make(map[string]interface{}, len(prev.Extra)+len(patch.ExtraPatch))
		for k, v := range prev.Extra {
			merged[k] = v
		}
		for k, v := range patch.ExtraPatch {
			merged[k] = v
		}
		next.Extra = merged
	}

	return next
}
