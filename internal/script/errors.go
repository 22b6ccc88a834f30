package script

import (
	"fmt"
	"strings"
)

// CompileError reports a marker the compiler could not resolve.
type CompileError struct {
	// Marker is the variable name, or the raw tail for an unclosed marker.
	Marker   string
	Offset   int
	Unclosed bool
}

func (e *CompileError) Error() string {
	if e.Unclosed {
		return fmt.Sprintf("unclosed variable marker at offset %d: %q", e.Offset, e.Marker)
	}
	return fmt.Sprintf("unresolved variable %q at offset %d", e.Marker, e.Offset)
}

// InclusionCycleError reports a template that includes itself, directly or
// through a chain of other templates.
type InclusionCycleError struct {
	File  string
	Chain []string
}

func (e *InclusionCycleError) Error() string {
	return fmt.Sprintf("template %q is already included (chain: %s)", e.File, strings.Join(e.Chain, " -> "))
}
