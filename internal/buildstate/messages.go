package buildstate

import (
	"sort"

	"incrementum/internal/diagnostics"
	"incrementum/internal/pathset"
)

// GetSelectedMessages filters oldMessages down to inputs belonging to any of
// the queried PathSets — the diagnostic-replay set for commit protocol step
// 9. The result is a map and carries no order; the caller sorts its keys.
func (b *BuildState) GetSelectedMessages(queried []pathset.PathSet, oldMessages map[string][]diagnostics.Message) map[string][]diagnostics.Message {
	selected := make(map[string][]diagnostics.Message)
	for input, msgs := range oldMessages {
		if len(msgs) == 0 {
			continue
		}
		if belongsToAny(queried, input) {
			selected[input] = msgs
		}
	}
	return selected
}

// GetErrors counts error-severity messages, across the *current* stored
// state, belonging to inputs matched by any queried PathSet — commit
// protocol step 10.
func (b *BuildState) GetErrors(queried []pathset.PathSet) int {
	count := 0
	for input, rec := range b.Inputs {
		if !belongsToAny(queried, input) {
			continue
		}
		for _, m := range rec.Messages {
			if m.IsError() {
				count++
			}
		}
	}
	return count
}

// SortedInputs returns the tracked input paths in deterministic
// lexicographic order.
func (b *BuildState) SortedInputs() []string {
	out := make([]string, 0, len(b.Inputs))
	for input := range b.Inputs {
		out = append(out, input)
	}
	sort.Strings(out)
	return out
}

func belongsToAny(queried []pathset.PathSet, absPath string) bool {
	for _, ps := range queried {
		if ps.Satisfies(absPath) {
			return true
		}
	}
	return false
}
