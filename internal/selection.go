package internal

import (
	"fmt"
	"strconv"
	"strings"
)

const SelectionPrompt = "Update remote files? ('y' or 'n' or 'line number of files you want to update')"

// ParseSelection turns an operator answer into zero-based indices into a
// list of n entries. "y" selects everything, "n" is ErrCancelled, otherwise
// the answer is a whitespace-separated list of 1-based line numbers.
func ParseSelection(answer string, n int) ([]int, error) {
	answer = strings.TrimSpace(answer)

	switch answer {
	case "y", "Y":
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, nil
	case "n", "N":
		return nil, ErrCancelled
	case "":
		return nil, fmt.Errorf("%w: empty answer", ErrSelectionInvalid)
	}

	fields := strings.Fields(answer)
	seen := make(map[int]bool, len(fields))
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		line, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a line number", ErrSelectionInvalid, f)
		}
		if line < 1 || line > n {
			return nil, fmt.Errorf("%w: line %d out of range 1-%d", ErrSelectionInvalid, line, n)
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line-1)
	}

	return out, nil
}
