package engine

// CascadeOverflow occurs when a cascaded change event's depth exceeds
// the engine's configured bound, or when the per-firing queue itself
// is full. The offending branch is dropped; the rest of the cascade
// and the rest of the bucket it came from are unaffected.
type CascadeOverflow struct {
	EntityType string
	EntityID   string
	Property   string
	Depth      int
	Reason     string // "depth" or "queue"
}

func (e *CascadeOverflow) Error() string {
	return "cascade overflow (" + e.Reason + ") on " + e.EntityType + "/" + e.EntityID + "." + e.Property
}

// RuleFailure wraps an error encountered while firing one rule. The
// bucket loop itself does not build one: it logs the raw error,
// reports it to the Observers, and continues with the next rule.
type RuleFailure struct {
	Rule string
	Err  error
}

func (e *RuleFailure) Error() string {
	return "rule " + e.Rule + " failed: " + e.Err.Error()
}

func (e *RuleFailure) Unwrap() error { return e.Err }
