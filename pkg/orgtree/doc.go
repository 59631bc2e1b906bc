// Package orgtree defines the in-memory organization tree shared by the
// server, the registry adapters and the CLI.
//
// A Unit carries its roles, its metrics and its child units. Field defaults
// (role count 1, occupant "Vacant", missing quarters 0) are applied once when
// a UnitRecord is built into a Unit, so code that walks the tree never has to
// second-guess absent values.
//
// Validate guards against input the analytics code cannot handle: shared or
// cyclic subtrees, unbounded nesting, duplicate or empty unit names and
// negative counts.
package orgtree
