package internal

import (
	"fmt"
	"io"
	"strconv"
)

// RenderPlan prints the plan in the order an operator reviews it: ignored
// paths, numbered mappings, paths without a rule, then failures.
func RenderPlan(w io.Writer, plan *SyncPlan) {
	if len(plan.Ignored) > 0 {
		fmt.Fprintln(w, "Following files are ignored:")
		for _, p := range plan.Ignored {
			fmt.Fprintf(w, "%q\n", p)
		}
	}

	if len(plan.Mapped) > 0 {
		fmt.Fprintln(w, "Following files will be updated:")
		width := len(strconv.Itoa(len(plan.Mapped)))
		for i, m := range plan.Mapped {
			fmt.Fprintf(w, "%*d. %s --> %s\n", width, i+1, m.Source, m.Destination)
		}
	}

	if len(plan.Unmapped) > 0 {
		fmt.Fprintln(w, "Following files has no configured remote dir:")
		for _, p := range plan.Unmapped {
			fmt.Fprintln(w, p)
		}
	}

	if len(plan.Failed) > 0 {
		fmt.Fprintln(w, "Following files could not be mapped:")
		for _, f := range plan.Failed {
			fmt.Fprintf(w, "%s: %v\n", f.Path, f.Err)
		}
	}

	for _, err := range plan.SpecErrors {
		fmt.Fprintf(w, "skipped %v\n", err)
	}

	if plan.Empty() {
		fmt.Fprintln(w, "No file will be updated, exit.")
	}
}
