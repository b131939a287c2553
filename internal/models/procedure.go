package models

// Procedure is the remediation-runbook descriptor bound to an alert via
// procedure_id. Resolution happens in an external service; the shape
// here mirrors what that service returns.
type Procedure struct {
	ProcedureID int64          `json:"procedure_id"`
	Details     map[string]any `json:"procedure_details"`
}

// DefaultProcedure is rendered when procedure resolution fails: the
// read path must degrade, never error, on a dangling procedure binding.
func DefaultProcedure() *Procedure {
	return &Procedure{ProcedureID: 1, Details: map[string]any{}}
}
