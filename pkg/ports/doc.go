// Package ports defines the interfaces between the supervisor core and
// its external collaborators: the whole-body control solver, the graph
// supplier, and diagnostics sinks. Adapters live under pkg/adapters.
package ports
