package buildpkg

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/rs/zerolog"
)

// InstallSpec describes one dependency installation.
type InstallSpec struct {
	RequirementsPath string
	Platform         string
	PythonVersion    string
	TargetDir        string
}

// Installer installs pinned Python dependencies. Builds shell out to pip;
// tests substitute a fake.
type Installer interface {
	// Compile pins the requirements at requirementsPath into outputPath.
	Compile(ctx context.Context, requirementsPath, outputPath string) error

	// Install installs the pinned requirements per spec.
	Install(ctx context.Context, spec InstallSpec) error
}

// PipInstaller implements Installer with the pip and pip-compile binaries.
type PipInstaller struct {
	logger zerolog.Logger
}

// NewPipInstaller returns a pip-backed Installer.
func NewPipInstaller(logger zerolog.Logger) *PipInstaller {
	return &PipInstaller{logger: logger}
}

// Compile runs pip-compile, directing the pinned set into outputPath.
func (p *PipInstaller) Compile(ctx context.Context, requirementsPath, outputPath string) error {
	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	cmd := exec.CommandContext(ctx, "pip-compile", requirementsPath, "--output-file=-")
	cmd.Stdout = out
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	p.logger.Debug().Strs("args", cmd.Args).Msg("executing pip-compile")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pip-compile failed: %w: %s", err, stderr.String())
	}
	return nil
}

// Install runs pip install with no transitive resolution; the compiled
// requirements are already complete.
func (p *PipInstaller) Install(ctx context.Context, spec InstallSpec) error {
	cmd := exec.CommandContext(ctx, "pip", "install",
		"-r", spec.RequirementsPath,
		"--platform", spec.Platform,
		"--target", spec.TargetDir,
		"--python-version", spec.PythonVersion,
		"--no-compile",
		"--no-deps",
	)
	output := &bytes.Buffer{}
	cmd.Stdout = output
	cmd.Stderr = output

	p.logger.Debug().Strs("args", cmd.Args).Msg("executing pip")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pip install failed: %w: %s", err, output.String())
	}
	return nil
}

var _ Installer = (*PipInstaller)(nil)
