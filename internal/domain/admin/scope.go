package admin

// Scope is the edit context of a data access call. A nil SandboxID addresses
// production rows.
type Scope struct {
	SandboxID *int64
	// Promote marks a sandbox promotion; updates then see deleted and
	// archived rows so they can be overridden.
	Promote bool
	// IncludeArchived lifts the deleted/archived row filter.
	IncludeArchived bool
}

// ProductionScope addresses rows outside any sandbox
func ProductionScope() Scope {
	return Scope{}
}

// SandboxScope addresses rows of one sandbox
func SandboxScope(id int64) Scope {
	return Scope{SandboxID: &id}
}

// IncludingArchived returns a copy that also sees deleted and archived rows
func (s Scope) IncludingArchived() Scope {
	s.IncludeArchived = true
	return s
}

// ForUpdate is the scope used to re-resolve a row before updating it
func (s Scope) ForUpdate() Scope {
	if s.Promote {
		return s.IncludingArchived()
	}
	return s
}

// InSandbox reports whether the scope addresses a sandbox
func (s Scope) InSandbox() bool {
	return s.SandboxID != nil
}
