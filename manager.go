package incrementum

import (
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"incrementum/internal/buildstate"
	"incrementum/internal/diagnostics"
	"incrementum/internal/fingerprint"
	"incrementum/internal/resolver"
)

// FullBuildHook decides whether a new context should force a full build.
// The default hook always returns false (spec.md §4.1).
type FullBuildHook func(outputDir, builderID string) bool

// Manager is the factory and registry described in spec.md §4.1: it owns
// the state cache, issues BuildContexts, and routes diagnostics.
//
// The state cache in spec.md is "weakly held": a BuildState with no live
// strong holder is eventually purged. Go 1.22 has no public weak-pointer
// API, so this is emulated deterministically with explicit reference
// counting instead of garbage-collector-driven finalizers: NewContext
// increments a state's holder count and the context's Commit/Close
// decrements it, purging the cache entry at zero. This preserves the
// observable contract (states outlive no live context) without relying on
// finalizer timing, which Go documentation explicitly discourages for
// resource management.
type Manager struct {
	fs            afero.Fs
	logger        zerolog.Logger
	router        diagnostics.Router
	isFullBuild   FullBuildHook

	mu    sync.Mutex
	cache map[string]*cacheEntry

	contextsMu sync.Mutex
	contexts   map[string]*BuildContext
}

type cacheEntry struct {
	state   *buildstate.BuildState
	holders int
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithFS overrides the filesystem the Manager and every context it creates
// operate on. The default is the real OS filesystem.
func WithFS(fs afero.Fs) Option {
	return func(m *Manager) { m.fs = fs }
}

// WithLogger sets the zerolog.Logger the default diagnostic router writes
// to. The default is a no-op logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithRouter overrides the diagnostic router entirely, bypassing the
// default logging behavior (spec.md §6).
func WithRouter(router diagnostics.Router) Option {
	return func(m *Manager) { m.router = router }
}

// WithFullBuildHook overrides the is_full_build predicate consulted by
// NewContext (spec.md §4.1). The default always returns false.
func WithFullBuildHook(hook FullBuildHook) Option {
	return func(m *Manager) { m.isFullBuild = hook }
}

// NewManager constructs a Manager. With no options it uses the real
// filesystem, a no-op logger, the default logging Router, and never forces
// a full build.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		fs:          afero.NewOsFs(),
		logger:      zerolog.Nop(),
		isFullBuild: func(string, string) bool { return false },
		cache:       make(map[string]*cacheEntry),
		contexts:    make(map[string]*BuildContext),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.router == nil {
		m.router = diagnostics.NewLogRouter(m.logger)
	}
	return m
}

// NewContext constructs a BuildContext for (outputDir, builderID), loading
// or creating the BuildState at
// stateDir/hex(digest(outputDir))-hex(digest(builderID)).ser
// (spec.md §4.1, §6).
func (m *Manager) NewContext(outputDir, stateDir, builderID string) (*BuildContext, error) {
	if outputDir == "" {
		return nil, invalidArgumentf("output directory not specified")
	}
	if stateDir == "" {
		return nil, invalidArgumentf("state directory not specified")
	}
	if builderID == "" {
		return nil, invalidArgumentf("builder id not specified")
	}

	outputDir = canonicalize(outputDir)
	stateFile := m.stateFilePath(stateDir, outputDir, builderID)
	fullBuild := m.isFullBuild(outputDir, builderID)

	state, err := m.loadOrCreateState(stateFile, fullBuild)
	if err != nil {
		return nil, err
	}

	ctx := newBuildContext(m, outputDir, stateFile, state, fullBuild)

	m.contextsMu.Lock()
	m.contexts[stateFile] = ctx
	m.contextsMu.Unlock()

	return ctx, nil
}

func (m *Manager) stateFilePath(stateDir, outputDir, builderID string) string {
	name := fingerprint.PathDigest(outputDir) + "-" + fingerprint.PathDigest(builderID) + ".ser"
	return filepath.ToSlash(filepath.Join(stateDir, name))
}

func (m *Manager) loadOrCreateState(stateFile string, fullBuild bool) (*buildstate.BuildState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.cache[stateFile]; ok {
		entry.holders++
		return entry.state, nil
	}

	var state *buildstate.BuildState
	if !fullBuild {
		loaded, err := buildstate.Load(m.fs, stateFile)
		if err == nil {
			state = loaded
		} else if fingerprint.Exists(m.fs, stateFile) {
			m.logger.Warn().Err(err).Str("state_file", stateFile).Msg("could not deserialize incremental build state")
		}
	}
	if state == nil {
		state = buildstate.New(m.fs, stateFile)
	}

	m.cache[stateFile] = &cacheEntry{state: state, holders: 1}
	return state, nil
}

// release decrements the holder count for stateFile's cache entry, purging
// it once no context holds it anymore.
func (m *Manager) release(stateFile string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.cache[stateFile]
	if !ok {
		return
	}
	entry.holders--
	if entry.holders <= 0 {
		delete(m.cache, stateFile)
	}
}

// deregisterContext removes stateFile's registry entry, but only if it is
// still occupied by ctx: two contexts sharing an output directory under
// different builder ids get distinct state files and therefore distinct
// slots, but this guard also protects against a stale deregister racing a
// newer context that has since replaced this slot for the same state file.
func (m *Manager) deregisterContext(stateFile string, ctx *BuildContext) {
	m.contextsMu.Lock()
	defer m.contextsMu.Unlock()
	if m.contexts[stateFile] == ctx {
		delete(m.contexts, stateFile)
	}
}

// ContextFor returns the most specific live context whose output directory
// is an ancestor of (or equal to) outputPath, mirroring
// DefaultBuildContextManager.getBuildContext. It backs convenience call
// sites that only have an output path, not an explicit context handle. The
// registry is keyed by state file, not output directory, since two live
// contexts may target the same output directory under different builder
// ids — so this walks the registry's values and compares each context's
// own output directory instead of the map key.
func (m *Manager) ContextFor(outputPath string) (*BuildContext, bool) {
	outputPath = canonicalize(outputPath)

	m.contextsMu.Lock()
	defer m.contextsMu.Unlock()

	var best *BuildContext
	bestLen := -1
	for _, ctx := range m.contexts {
		if _, ok := relOrEqual(ctx.outputDir, outputPath); ok && len(ctx.outputDir) > bestLen {
			best = ctx
			bestLen = len(ctx.outputDir)
		}
	}
	return best, best != nil
}

// Destroy removes state from the cache and deletes its state file
// (spec.md §4.1).
func (m *Manager) Destroy(state *buildstate.BuildState) error {
	m.mu.Lock()
	delete(m.cache, state.StateFile)
	m.mu.Unlock()
	return buildstate.Destroy(m.fs, state.StateFile)
}

// ResolveOutputs performs the same directory scan as the Resolver but
// without the dirtiness predicate: it returns every file matched by ps
// (spec.md §4.1).
func (m *Manager) ResolveOutputs(ps PathSet) ([]string, error) {
	paths, err := resolver.Resolve(m.fs, ps, alwaysDirtyChecker{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p.Deleted {
			continue
		}
		out = append(out, p.Relative)
	}
	return out, nil
}

type alwaysDirtyChecker struct{}

func (alwaysDirtyChecker) IsProcessingRequired(string) bool { return true }
func (alwaysDirtyChecker) DeletedInputPaths(string, map[string]struct{}) []string { return nil }

// AddMessage forwards to the diagnostic router (spec.md §4.1, §6).
func (m *Manager) AddMessage(input string, msg Message) {
	m.router.AddMessage(input, msg)
}

// ClearMessages forwards to the diagnostic router.
func (m *Manager) ClearMessages(input string) {
	m.router.ClearMessages(input)
}

// OutputUpdated forwards to the diagnostic router.
func (m *Manager) OutputUpdated(outputs []string) {
	m.router.OutputUpdated(outputs)
}

func canonicalize(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	return filepath.ToSlash(filepath.Clean(abs))
}

func relOrEqual(base, target string) (string, bool) {
	if base == target {
		return "", true
	}
	prefix := base + "/"
	if len(target) > len(prefix) && target[:len(prefix)] == prefix {
		return target[len(prefix):], true
	}
	return "", false
}
