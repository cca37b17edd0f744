// Package recipient owns the recipient lifecycle state machine.
//
// All status writes flow through this service so the transition table,
// timestamp stamping, and token rotation rules are enforced in one place.
// It depends on the repository interface defined in this package and should
// never import from handler code.
//
// Repository implementations live in repository/postgres/.
package recipient
