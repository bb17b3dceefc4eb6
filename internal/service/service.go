// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services take repository interfaces, not concrete database types, so the
// same rules run on sqlite, on postgres and against the in-memory fakes in
// the tests. Nothing in this package knows about HTTP.
package service

// AuthObserver is told about every authentication attempt. method is
// "register", "local", "google" or "logout"; outcome is "success", "failure"
// or "error". metrics.Collector implements it.
type AuthObserver interface {
	AuthEvent(method, outcome string)
}

// TodoObserver is told about every successful todo mutation or read.
type TodoObserver interface {
	TodoOperation(op string)
}

type noopObserver struct{}

func (noopObserver) AuthEvent(string, string) {}
func (noopObserver) TodoOperation(string)     {}

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeError   = "error"
)
