package democmd

import (
	"bytes"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"incrementum"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run one incremental build: upper-case every input file into the output directory",
	RunE:  runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg)
	fs := afero.NewOsFs()

	mgr := incrementum.NewManager(
		incrementum.WithFS(fs),
		incrementum.WithLogger(logger),
		incrementum.WithFullBuildHook(func(string, string) bool { return cfg.FullBuild }),
	)

	ctx, err := mgr.NewContext(cfg.OutputDir, cfg.StateDir, cfg.BuilderID)
	if err != nil {
		return fmt.Errorf("new build context: %w", err)
	}

	digester, err := ctx.NewDigester()
	if err != nil {
		return err
	}
	for _, pattern := range append(append([]string{}, cfg.Includes...), cfg.Excludes...) {
		digester.WriteString(pattern)
	}
	changed, err := ctx.SetConfiguration([]byte(digester.Sum()))
	if err != nil {
		_ = ctx.Close()
		return err
	}
	if changed {
		fmt.Println("configuration changed since last build; upgrading to a full build")
	}

	ps := incrementum.NewPathSet(cfg.InputDir, cfg.Includes, cfg.Excludes)
	dirty, err := ctx.GetInputs(ps)
	if err != nil {
		_ = ctx.Close()
		return fmt.Errorf("resolve inputs: %w", err)
	}

	processed := 0
	for _, rel := range dirty {
		inputAbs := path.Join(cfg.InputDir, rel)
		outputAbs := path.Join(cfg.OutputDir, rel)

		if err := ctx.ClearMessages(inputAbs); err != nil {
			_ = ctx.Close()
			return err
		}

		content, readErr := afero.ReadFile(fs, inputAbs)
		if readErr != nil {
			_ = ctx.AddMessage(inputAbs, 0, 0, readErr.Error(), incrementum.SeverityError, "")
			continue
		}

		stream, err := ctx.NewOutputStream(outputAbs)
		if err != nil {
			_ = ctx.Close()
			return err
		}
		if _, err := stream.Write(bytes.ToUpper(content)); err != nil {
			_ = ctx.Close()
			return fmt.Errorf("write %s: %w", outputAbs, err)
		}
		if err := stream.Close(); err != nil {
			_ = ctx.Close()
			return fmt.Errorf("close %s: %w", outputAbs, err)
		}
		if err := ctx.AddOutput(inputAbs, outputAbs); err != nil {
			_ = ctx.Close()
			return err
		}
		processed++
	}

	if err := ctx.Commit(); err != nil {
		var failed *incrementum.BuildFailedError
		if errors.As(err, &failed) {
			fmt.Printf("build finished with errors: %s\n", strings.TrimSpace(failed.Error()))
			return err
		}
		return fmt.Errorf("commit: %w", err)
	}

	fmt.Printf("processed %d of %d dirty input(s)\n", processed, len(dirty))
	return nil
}
