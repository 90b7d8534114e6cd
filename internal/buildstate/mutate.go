package buildstate

import (
	"sort"

	"incrementum/internal/diagnostics"
	"incrementum/internal/fingerprint"
)

// SetConfiguration overwrites the stored configuration digest
// (spec.md §4.2 commit mutation).
func (b *BuildState) SetConfiguration(digest []byte) {
	b.Configuration = digest
}

// SetReferencedInputs overwrites input's referenced-input set and captures a
// fingerprint for each referenced file that is not itself a tracked input
// (spec.md §4.2).
func (b *BuildState) SetReferencedInputs(input string, refs []string) {
	rec := b.ensureRecord(input)
	rec.Referenced = sortedUnique(refs)
	rec.ReferencedFingerprints = make(map[string]fingerprint.FileState, len(refs))
	for _, ref := range rec.Referenced {
		if _, isInput := b.Inputs[ref]; isInput {
			continue
		}
		if fp, err := fingerprint.Probe(b.fs, ref); err == nil {
			rec.ReferencedFingerprints[ref] = fp
		}
	}
}

// SetOutputs replaces input's output set, returning the outputs that were
// present before but not after (the obsolete set to delete), and re-probes
// input's own fingerprint (spec.md §4.2).
func (b *BuildState) SetOutputs(input string, outputs []string) []string {
	rec := b.ensureRecord(input)
	old := rec.Outputs
	next := sortedUnique(outputs)
	obsolete := difference(old, next)
	rec.Outputs = next
	if fp, err := fingerprint.Probe(b.fs, input); err == nil {
		rec.Fingerprint = fp
	}
	return obsolete
}

// RemoveInput deletes input's record entirely, returning the outputs it
// owned that are not also owned by any surviving input — the orphan set
// (spec.md §4.2).
func (b *BuildState) RemoveInput(input string) []string {
	rec, ok := b.Inputs[input]
	if !ok {
		return nil
	}
	delete(b.Inputs, input)

	var orphaned []string
	for _, out := range rec.Outputs {
		if !b.hasOwner(out) {
			orphaned = append(orphaned, out)
		}
	}
	return orphaned
}

func (b *BuildState) hasOwner(output string) bool {
	for _, rec := range b.Inputs {
		for _, out := range rec.Outputs {
			if out == output {
				return true
			}
		}
	}
	return false
}

// MergeMessages replaces the stored messages for every input present in
// newMessages, returning every other input's currently stored messages
// untouched by this call — the inputs this build never cleared or added to,
// whose previously persisted messages must still be replayed in step 9 of
// the commit protocol (spec.md §4.3). Inputs about to be overwritten are
// excluded from the returned snapshot: their messages were already routed
// live as add_message/clear_messages was called this build, so replaying
// their pre-build state again would duplicate or stale-ify what the router
// already saw.
func (b *BuildState) MergeMessages(newMessages map[string][]diagnostics.Message) map[string][]diagnostics.Message {
	old := make(map[string][]diagnostics.Message, len(b.Inputs))
	for input, rec := range b.Inputs {
		if len(rec.Messages) == 0 {
			continue
		}
		if _, overwritten := newMessages[input]; overwritten {
			continue
		}
		old[input] = rec.Messages
	}
	for input, msgs := range newMessages {
		rec := b.ensureRecord(input)
		rec.Messages = msgs
	}
	return old
}

// CleanupReferencedInputs prunes referenced-input fingerprint entries no
// longer referenced by any surviving input (spec.md §4.2, invariant 2).
func (b *BuildState) CleanupReferencedInputs() {
	stillReferenced := make(map[string]bool)
	for _, rec := range b.Inputs {
		for _, ref := range rec.Referenced {
			stillReferenced[ref] = true
		}
	}
	for _, rec := range b.Inputs {
		for ref := range rec.ReferencedFingerprints {
			if !stillReferenced[ref] {
				delete(rec.ReferencedFingerprints, ref)
			}
		}
	}
}

// ClearMessages resets input's stored messages to an empty (non-nil) list,
// allowing subsequent add_message calls in the owning BuildContext.
func (b *BuildState) ClearMessages(input string) {
	rec := b.ensureRecord(input)
	rec.Messages = []diagnostics.Message{}
}

func sortedUnique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func difference(oldSet, newSet []string) []string {
	present := make(map[string]struct{}, len(newSet))
	for _, s := range newSet {
		present[s] = struct{}{}
	}
	var diff []string
	for _, s := range oldSet {
		if _, ok := present[s]; !ok {
			diff = append(diff, s)
		}
	}
	return diff
}
