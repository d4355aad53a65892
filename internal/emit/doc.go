// Package emit renders validated definitions into WIT interface text: a
// types interface covering every declared type and one interface per
// operator carrying its function signature and state capability imports.
// Emission performs no validation of its own; callers run it only on
// definitions that already validated.
package emit
