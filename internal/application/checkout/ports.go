package checkout

// IDGenerator mints internal entity ids.
type IDGenerator interface {
	NewID() string
}

// CodeGenerator mints externally-facing human-readable order codes.
type CodeGenerator interface {
	NewCode() string
}

// Actor is the authenticated identity acting on an order. Authentication and
// role resolution happen outside the core; the orchestrator trusts it.
type Actor struct {
	UserID string
	Role   string
}

// Capability answers authorization questions for privileged operations. Role
// policy lives outside the core; this is the capability check passed in.
type Capability interface {
	CanCancel(actor Actor) bool
	CanAdvance(actor Actor) bool
	CanArchive(actor Actor) bool
}
