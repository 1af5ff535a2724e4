package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/openfork/forksync/internal/buildpkg"
)

var buildDir string

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Package the integration into a distributable tree",
	Long: `Copy the integration code into the build directory, install its pinned
Python dependencies for the target platform and stamp the manifest with
the update URL. Tests, hidden files and the release metadata file are
left out.`,
	Args: cobra.NoArgs,
	Run:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildDir, "dir", "", "Build output directory (required)")
	buildCmd.MarkFlagRequired("dir")
}

func runBuild(cmd *cobra.Command, args []string) {
	c := initContext()
	defer c.Close()

	builder := buildpkg.New(buildpkg.NewPipInstaller(c.Logger), c.Logger)
	result, err := builder.Build(context.Background(), buildpkg.Options{
		SourceRoot:   ".",
		OutputDir:    buildDir,
		RepoFullName: repoFullName(c.Config),
		BaseBranch:   c.Config.BaseBranch,
	})
	if err != nil {
		exitError("%v", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("Built %s %s into %s", result.Manifest.Platform, result.Manifest.Version, buildDir)
	fmt.Println()
}
