// Package incrementum implements incremental build avoidance for code
// generators and similar tools that transform input files into output
// files. Given a set of inputs selected by include/exclude patterns, a
// configuration fingerprint, and a persisted record of the previous build,
// it answers one question: which inputs must be reprocessed, and which
// previously produced outputs are now obsolete or orphaned? It then
// reconciles the filesystem so obsolete/orphaned outputs are deleted, new
// state is persisted, and unchanged output files are left untouched.
//
// The engine does not schedule work in parallel, does not perform code
// generation itself, does not watch the filesystem for changes, and does
// not attempt cross-process locking on its state file: it detects stale
// state but tolerates it only by forcing a rebuild.
//
// A typical build:
//
//	mgr := incrementum.NewManager()
//	ctx, err := mgr.NewContext("out", ".buildstate", "example.generator")
//	...
//	dirty, err := ctx.GetInputs(incrementum.NewPathSet("in", nil, nil))
//	for _, rel := range dirty {
//	        out, _ := ctx.NewOutputStream(filepath.Join("out", rel+".gen"))
//	        out.Write(generate(rel))
//	        out.Close()
//	        ctx.AddOutput(filepath.Join("in", rel), filepath.Join("out", rel+".gen"))
//	}
//	err = ctx.Commit()
package incrementum
