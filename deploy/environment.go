package deploy

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ruffel/hecdeploy"
	"github.com/ruffel/hecdeploy/config"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultEnvExportCommand exports the active conda environment.
const DefaultEnvExportCommand = "conda env export --no-builds --from-history"

// environmentDescriptor is the part of environment.yml the pipeline reads.
type environmentDescriptor struct {
	Name string `yaml:"name"`
}

// CaptureEnvironment makes sure environment.yml exists in the project and reads
// the environment name from it. An existing file is reused as-is. Otherwise the
// environment is exported through the local runner and requirements.txt is
// written from pip freeze on a best-effort basis.
func (o *Orchestrator) CaptureEnvironment(ctx context.Context) error {
	envPath := filepath.Join(o.projectDir, EnvironmentFile)

	exists, err := afero.Exists(o.fs, envPath)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", envPath, err)
	}

	if exists {
		o.logger.Info("reusing existing environment file", zap.String("path", envPath))
	} else if err := o.exportEnvironment(ctx, envPath); err != nil {
		return err
	}

	o.mu.Lock()
	o.envName = ""
	o.mu.Unlock()

	if _, err := o.ensureEnvName(); err != nil {
		return err
	}

	o.advance(StageEnvironmentCaptured)

	return nil
}

func (o *Orchestrator) exportEnvironment(ctx context.Context, envPath string) error {
	line, ok := o.cfg.LookupString(config.KeyEnvExportCommand)
	if !ok {
		line = DefaultEnvExportCommand
	}

	cmd, err := hecdeploy.ParseCommand(line)
	if err != nil {
		return &hecdeploy.ValidationError{Field: config.KeyEnvExportCommand, Value: line, Reason: err.Error()}
	}

	cmd.Dir = o.projectDir

	o.logger.Info("exporting environment", zap.Stringer("command", cmd))

	exec := hecdeploy.NewExecutor(o.local)

	res, err := exec.RunBuffered(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to export environment: %w", err)
	}

	if err := afero.WriteFile(o.fs, envPath, dropLastLine(res.Stdout), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", envPath, err)
	}

	freeze := hecdeploy.Cmd("pip").Arg("freeze").Dir(o.projectDir).Build()

	reqs, err := exec.RunBuffered(ctx, freeze)
	if err != nil {
		o.logger.Warn("could not freeze pip requirements", zap.Error(err))

		return nil
	}

	reqPath := filepath.Join(o.projectDir, RequirementsFile)
	if err := afero.WriteFile(o.fs, reqPath, reqs.Stdout, 0o644); err != nil {
		o.logger.Warn("could not write requirements", zap.String("path", reqPath), zap.Error(err))
	}

	return nil
}

// ensureEnvName reads the environment name from environment.yml if it is not known yet.
func (o *Orchestrator) ensureEnvName() (string, error) {
	o.mu.Lock()
	name := o.envName
	o.mu.Unlock()

	if name != "" {
		return name, nil
	}

	envPath := filepath.Join(o.projectDir, EnvironmentFile)

	data, err := afero.ReadFile(o.fs, envPath)
	if err != nil {
		return "", fmt.Errorf("failed to read environment descriptor: %w", err)
	}

	var desc environmentDescriptor
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return "", &hecdeploy.ValidationError{Field: "environment descriptor", Value: envPath, Reason: err.Error()}
	}

	name = strings.ReplaceAll(strings.TrimSpace(desc.Name), " ", "")
	if name == "" {
		return "", &hecdeploy.ValidationError{Field: "environment descriptor", Value: envPath, Reason: errMissingName.Error()}
	}

	o.mu.Lock()
	o.envName = name
	o.mu.Unlock()

	return name, nil
}

var errMissingName = errors.New("no environment name")

// dropLastLine removes the final line of exported output, which conda fills
// with terminal escape codes.
func dropLastLine(out []byte) []byte {
	s := strings.TrimSuffix(string(out), "\n")

	i := strings.LastIndex(s, "\n")
	if i < 0 {
		return nil
	}

	return []byte(s[:i+1])
}
