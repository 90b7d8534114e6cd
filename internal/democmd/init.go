package democmd

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"incrementum/internal/democonfig"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter incrementum.toml in the current directory",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := democonfig.Config{
		InputDir:  "in",
		OutputDir: "out",
		StateDir:  ".incrementum",
		BuilderID: "incrementum.demo",
		Includes:  []string{"**/*.txt"},
		Excludes:  nil,
	}
	fs := afero.NewOsFs()
	if err := democonfig.WriteExample(fs, "incrementum.toml", cfg); err != nil {
		return fmt.Errorf("write incrementum.toml: %w", err)
	}
	fmt.Println("wrote incrementum.toml")
	return nil
}
