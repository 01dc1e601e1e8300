package scenario

// Trace event types.
const (
	EventStep      = "step"
	EventChange    = "change"
	EventPropagate = "propagate"
	EventSkip      = "skip"
	EventViolation = "violation"
	EventError     = "error"
)

// TraceEvent is one entry of a scenario trace. Which fields are set depends
// on Type.
type TraceEvent struct {
	Seq         int64    `json:"seq"`
	Type        string   `json:"type"`
	Op          string   `json:"op,omitempty"`
	Node        string   `json:"node,omitempty"`
	Target      string   `json:"target,omitempty"`
	Relation    string   `json:"relation,omitempty"`
	Property    string   `json:"property,omitempty"`
	Action      string   `json:"action,omitempty"`
	NewItems    []string `json:"new_items,omitempty"`
	OldItems    []string `json:"old_items,omitempty"`
	NewIndex    int      `json:"new_index"`
	OldIndex    int      `json:"old_index"`
	Reason      string   `json:"reason,omitempty"`
	Code        string   `json:"code,omitempty"`
	Message     string   `json:"message,omitempty"`
	Propagation string   `json:"propagation,omitempty"`
}

// toCanonicalMap converts the event for canonical JSON. Index fields are
// emitted for change events only.
func (e TraceEvent) toCanonicalMap() map[string]any {
	m := map[string]any{
		"seq":  e.Seq,
		"type": e.Type,
	}
	set := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	set("op", e.Op)
	set("node", e.Node)
	set("target", e.Target)
	set("relation", e.Relation)
	set("property", e.Property)
	set("action", e.Action)
	set("reason", e.Reason)
	set("code", e.Code)
	set("message", e.Message)
	set("propagation", e.Propagation)
	if e.Type == EventChange {
		m["new_items"] = orEmpty(e.NewItems)
		m["old_items"] = orEmpty(e.OldItems)
		m["new_index"] = e.NewIndex
		m["old_index"] = e.OldIndex
	}
	return m
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every step matched its expected error and every
	// expectation held.
	Pass bool `json:"pass"`

	// Trace holds step, change and sync events in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Journal is the number of change descriptors persisted by the run.
	Journal int `json:"journal"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Count returns the number of trace events of type typ.
func (r *Result) Count(typ string) int {
	n := 0
	for _, e := range r.Trace {
		if e.Type == typ {
			n++
		}
	}
	return n
}
