package incrementum

import (
	"sort"
	"sync"
	"time"

	"incrementum/internal/buildstate"
	"incrementum/internal/diagnostics"
	"incrementum/internal/fingerprint"
	"incrementum/internal/lifecycle"
	"incrementum/internal/outputstream"
	"incrementum/internal/pathset"
	"incrementum/internal/resolver"
)

// BuildContext is the central state machine described in spec.md §4.3: one
// transient session bound to one output directory and one builder
// identifier. Exactly one of Commit or Close terminates it.
type BuildContext struct {
	mu sync.Mutex

	manager   *Manager
	outputDir string
	stateFile string
	state     *buildstate.BuildState
	fullBuild bool
	start     time.Time

	machine *lifecycle.Machine

	configuration        []byte
	configurationChanged bool

	// addedOutputs maps an absolute input path to the outputs registered
	// for it this build. A present key with a nil/empty slice records "this
	// input was seen, even if it produced nothing" (spec.md §4.3).
	addedOutputs     map[string][]string
	referencedInputs map[string][]string
	deletedInputs    []string

	modified   map[string]struct{}
	unmodified map[string]struct{}

	queriedSets []PathSet

	// messages is the context-local view of per-input diagnostics accrued
	// this build; nil until ClearMessages(input) is called for that input.
	messages map[string][]Message
}

func newBuildContext(m *Manager, outputDir, stateFile string, state *buildstate.BuildState, fullBuild bool) *BuildContext {
	return &BuildContext{
		manager:          m,
		outputDir:        outputDir,
		stateFile:        stateFile,
		state:            state,
		fullBuild:        fullBuild,
		start:            time.Now(),
		machine:          lifecycle.NewMachine(),
		addedOutputs:     make(map[string][]string),
		referencedInputs: make(map[string][]string),
		modified:         make(map[string]struct{}),
		unmodified:       make(map[string]struct{}),
		messages:         make(map[string][]Message),
	}
}

// OutputDirectory returns the context's canonicalized output directory.
func (c *BuildContext) OutputDirectory() string { return c.outputDir }

func (c *BuildContext) failIfCommittedOrClosed() error {
	switch c.machine.State() {
	case lifecycle.Committed:
		return illegalStatef("build context has already been committed")
	case lifecycle.Closed:
		return illegalStatef("build context has already been closed")
	default:
		return nil
	}
}

// NewDigester returns a fresh fingerprint accumulator (spec.md §4.3).
func (c *BuildContext) NewDigester() (*Digester, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failIfCommittedOrClosed(); err != nil {
		return nil, err
	}
	return fingerprint.NewDigester(), nil
}

// SetConfiguration stores digest on the context and reports whether the
// state considers it changed from what was last committed. A true result
// upgrades every subsequent GetInputs call on this context to full-build
// behavior — but never retroactively revises paths already returned by an
// earlier GetInputs call (spec.md §9, decided open question).
func (c *BuildContext) SetConfiguration(digest []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failIfCommittedOrClosed(); err != nil {
		return false, err
	}
	c.configuration = digest
	changed := c.state.IsConfigurationChanged(digest)
	if changed {
		c.configurationChanged = true
	}
	return changed, nil
}

// GetValue reads the opaque user-value bag (spec.md §4.2).
func (c *BuildContext) GetValue(key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failIfCommittedOrClosed(); err != nil {
		return nil, false, err
	}
	v, ok := c.state.GetValue(key, c.effectiveFullBuild())
	return v, ok, nil
}

// SetValue writes to the opaque user-value bag (spec.md §4.2).
func (c *BuildContext) SetValue(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failIfCommittedOrClosed(); err != nil {
		return err
	}
	c.state.SetValue(key, value, c.effectiveFullBuild())
	return nil
}

func (c *BuildContext) effectiveFullBuild() bool {
	return c.fullBuild || c.configurationChanged
}

// GetInputs resolves paths, recording a deep copy of ps in the queried-set
// tracker and returning the relative path of every dirty (needs-processing)
// entry. Deleted entries are recorded internally, not returned
// (spec.md §4.3).
func (c *BuildContext) GetInputs(ps PathSet) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failIfCommittedOrClosed(); err != nil {
		return nil, err
	}

	c.queriedSets = append(c.queriedSets, ps.Clone())

	fullBuild := c.effectiveFullBuild()
	checker := &contextChecker{state: c.state, fullBuild: fullBuild}
	paths, err := resolver.Resolve(c.manager.fs, ps, checker)
	if err != nil {
		return nil, err
	}

	inputs := make([]string, 0, len(paths))
	for _, p := range paths {
		abs := pathset.Join(ps.BaseDir, p.Relative)
		if p.Deleted {
			c.deletedInputs = append(c.deletedInputs, abs)
			continue
		}
		if _, seen := c.addedOutputs[abs]; !seen {
			c.addedOutputs[abs] = nil
		}
		inputs = append(inputs, p.Relative)
	}
	return inputs, nil
}

type contextChecker struct {
	state     *buildstate.BuildState
	fullBuild bool
}

func (c *contextChecker) IsProcessingRequired(absPath string) bool {
	return c.state.IsProcessingRequired(absPath, c.fullBuild)
}

func (c *contextChecker) DeletedInputPaths(baseDir string, selected map[string]struct{}) []string {
	return c.state.GetDeletedInputPaths(baseDir, selected)
}

// NewOutputStream returns a write-through-compare stream targeting output.
// On Close it records output as modified or unmodified, bound to no
// producing input; call AddOutput to associate it with one (spec.md §4.5).
func (c *BuildContext) NewOutputStream(output string) (*outputstream.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failIfCommittedOrClosed(); err != nil {
		return nil, err
	}
	output = canonicalize(output)
	return outputstream.New(c.manager.fs, output, func(modified bool) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.recordModifiedLocked(output, modified)
	}), nil
}

func (c *BuildContext) recordModifiedLocked(output string, modified bool) {
	if modified {
		c.modified[output] = struct{}{}
	} else {
		c.unmodified[output] = struct{}{}
	}
}

// AddOutput registers one or more output files as produced from input. Pass
// an empty input to register outputs with no producing input (spec.md
// §4.3).
func (c *BuildContext) AddOutput(input string, outputs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failIfCommittedOrClosed(); err != nil {
		return err
	}
	return c.addOutputsLocked(input, outputs)
}

// AddOutputsFromPathSet resolves ps against the filesystem (ignoring
// dirtiness) and registers every match as an output of input (spec.md
// §4.3, "add_output(input, outputs: PathSet)").
func (c *BuildContext) AddOutputsFromPathSet(input string, ps PathSet) error {
	c.mu.Lock()
	if err := c.failIfCommittedOrClosed(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.mu.Unlock()

	matches, err := c.manager.ResolveOutputs(ps)
	if err != nil {
		return err
	}
	abs := make([]string, len(matches))
	for i, rel := range matches {
		abs[i] = pathset.Join(ps.BaseDir, rel)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failIfCommittedOrClosed(); err != nil {
		return err
	}
	return c.addOutputsLocked(input, abs)
}

func (c *BuildContext) addOutputsLocked(input string, outputs []string) error {
	var canonInput string
	if input != "" {
		canonInput = canonicalize(input)
		if _, ok := c.addedOutputs[canonInput]; !ok {
			c.addedOutputs[canonInput] = []string{}
		}
	}

	for _, output := range outputs {
		if output == "" {
			continue
		}
		output = canonicalize(output)
		c.modified[output] = struct{}{}
		if canonInput != "" {
			c.addedOutputs[canonInput] = appendUnique(c.addedOutputs[canonInput], output)
		}
	}
	return nil
}

// AddReferencedInputs unions refs into input's per-input referenced set
// (spec.md §4.3).
func (c *BuildContext) AddReferencedInputs(input string, refs ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failIfCommittedOrClosed(); err != nil {
		return err
	}
	if len(refs) == 0 {
		return nil
	}
	input = canonicalize(input)
	set := c.referencedInputs[input]
	for _, r := range refs {
		if r == "" {
			continue
		}
		set = appendUnique(set, canonicalize(r))
	}
	c.referencedInputs[input] = set
	return nil
}

// AddMessage appends a diagnostic for input. It fails with ErrIllegalState
// if ClearMessages(input) was not called first in this build — previous
// build messages are authoritative until explicitly reset (spec.md §4.3,
// §9).
func (c *BuildContext) AddMessage(input string, line, column int, text string, severity Severity, cause string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failIfCommittedOrClosed(); err != nil {
		return err
	}
	input = canonicalize(input)
	if _, ok := c.messages[input]; !ok {
		return illegalStatef("addMessage without prior clearMessages")
	}
	msg := Message{Line: line, Column: column, Text: text, Severity: severity, Cause: cause}
	c.messages[input] = append(c.messages[input], msg)
	c.manager.AddMessage(input, msg)
	return nil
}

// ClearMessages clears both the context's and the BuildState's stored
// messages for input, initializing an empty list so AddMessage is now
// permitted (spec.md §4.3).
func (c *BuildContext) ClearMessages(input string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failIfCommittedOrClosed(); err != nil {
		return err
	}
	input = canonicalize(input)
	c.state.ClearMessages(input)
	c.messages[input] = []Message{}
	c.manager.ClearMessages(input)
	return nil
}

// Commit runs the ten-step protocol in spec.md §4.3: reconciles the
// modified/unmodified sets, applies every accumulated mutation to
// BuildState, persists it, notifies OutputUpdated, replays carried-over
// diagnostics, and finally fails with *BuildFailedError if any queried
// input still has persisted error-severity messages.
func (c *BuildContext) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.State() == lifecycle.Closed {
		return illegalStatef("commit() after close()")
	}
	if c.machine.State() == lifecycle.Committed {
		return nil
	}
	if err := c.machine.Transition(lifecycle.Committed); err != nil {
		return err
	}
	defer c.manager.deregisterContext(c.stateFile, c)
	defer c.manager.release(c.stateFile)

	// Step 1: modified -= unmodified.
	for output := range c.unmodified {
		delete(c.modified, output)
	}
	produced := len(c.modified)

	// Step 2: store configuration digest.
	c.state.SetConfiguration(c.configuration)

	// Step 3: replace outputs per input, collect+delete obsolete, in
	// deterministic input order (spec.md §5).
	deletedObsolete := 0
	for _, input := range sortedStringKeys(c.addedOutputs) {
		outputs := c.addedOutputs[input]
		c.state.SetReferencedInputs(input, c.referencedInputs[input])
		obsolete := c.state.SetOutputs(input, outputs)
		for _, o := range obsolete {
			c.modified[o] = struct{}{}
		}
		deletedObsolete += c.deleteFiles(obsolete, "obsolete")
	}

	// Step 4: remove deleted inputs, deepest path first; collect+delete
	// orphans.
	deletedInputsSorted := append([]string(nil), c.deletedInputs...)
	sort.Sort(sort.Reverse(sort.StringSlice(deletedInputsSorted)))
	deletedOrphaned := 0
	for _, input := range deletedInputsSorted {
		orphaned := c.state.RemoveInput(input)
		for _, o := range orphaned {
			c.modified[o] = struct{}{}
		}
		deletedOrphaned += c.deleteFiles(orphaned, "orphaned")
	}

	// Step 5: prune stale referenced-input fingerprints.
	c.state.CleanupReferencedInputs()

	// Step 6: merge messages, keep old for replay.
	newMessages := make(map[string][]diagnostics.Message, len(c.messages))
	for input, msgs := range c.messages {
		newMessages[input] = msgs
	}
	oldMessages := c.state.MergeMessages(newMessages)

	// Step 7: persist.
	if c.state.IsStale() {
		c.manager.logger.Debug().Str("state_file", c.stateFile).Msg("concurrent modification of build state file")
	}
	if err := c.state.Save(); err != nil {
		c.manager.logger.Warn().Err(err).Str("state_file", c.stateFile).Msg("could not serialize incremental build state")
	}

	// Step 8: notify.
	if len(c.modified) > 0 {
		c.manager.OutputUpdated(sortedKeys(c.modified))
	}

	c.manager.logger.Debug().
		Int("outputs_produced", produced).
		Int("obsolete_deleted", deletedObsolete).
		Int("orphaned_deleted", deletedOrphaned).
		Dur("elapsed", time.Since(c.start)).
		Msg("build context committed")

	// Step 9: diagnostic replay.
	selected := c.state.GetSelectedMessages(c.queriedSets, oldMessages)
	for _, input := range sortedMessageKeys(selected) {
		for _, m := range selected[input] {
			c.manager.AddMessage(input, m)
		}
	}

	// Step 10: fail on persisted errors under any queried set.
	errCount := c.state.GetErrors(c.queriedSets)
	if errCount > 0 {
		return &BuildFailedError{ErrorCount: errCount}
	}
	return nil
}

func (c *BuildContext) deleteFiles(paths []string, kind string) int {
	deleted := 0
	for _, p := range paths {
		err := c.manager.fs.Remove(p)
		if err == nil {
			deleted++
			c.manager.logger.Debug().Str("path", p).Str("kind", kind).Msg("deleted superfluous output")
		} else if fingerprint.Exists(c.manager.fs, p) {
			c.manager.logger.Debug().Err(err).Str("path", p).Str("kind", kind).Msg("failed to delete superfluous output")
		}
	}
	return deleted
}

// Close terminates the context without committing. If it was never
// committed, the Manager destroys the underlying state file so the next
// build is full (spec.md §4.3). Close after Commit is a no-op; Commit after
// Close is ErrIllegalState.
func (c *BuildContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.machine.State() == lifecycle.Committed {
		return nil
	}
	if c.machine.State() == lifecycle.Closed {
		return nil
	}
	if err := c.machine.Transition(lifecycle.Closed); err != nil {
		return err
	}
	defer c.manager.deregisterContext(c.stateFile, c)
	defer c.manager.release(c.stateFile)

	return c.manager.Destroy(c.state)
}

func appendUnique(set []string, value string) []string {
	for _, s := range set {
		if s == value {
			return set
		}
	}
	return append(set, value)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedMessageKeys(m map[string][]diagnostics.Message) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedStringKeys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
