package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ruffel/hecdeploy/deploy"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newDeployCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Run every stage: environment, script, archive, transfer, unpack and submit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, "Deploying project", (*deploy.Orchestrator).Deploy)
		},
	}
}

func newEnvCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Capture the project's environment into environment.yml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, "Capturing environment", (*deploy.Orchestrator).CaptureEnvironment)
		},
	}
}

func newScriptCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "script",
		Short: "Generate the cluster's submission script in the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, "Generating submission script", (*deploy.Orchestrator).GenerateScript)
		},
	}
}

func newArchiveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "archive",
		Short: "Pack the project into its ZIP archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, "Archiving project", (*deploy.Orchestrator).Archive)
		},
	}
}

func newTransferCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer",
		Short: "Upload an existing archive and unpack it on the cluster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, "Transferring archive",
				(*deploy.Orchestrator).Transfer,
				(*deploy.Orchestrator).Unpack,
			)
		},
	}
}

// run builds an orchestrator, runs steps in order and always closes it.
func run(cmd *cobra.Command, opts *rootOptions, title string, steps ...func(*deploy.Orchestrator, context.Context) error) error {
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() { _ = logger.Sync() }()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render(title))

	o, err := opts.orchestrator(cmd, logger)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := o.Close(); closeErr != nil {
			logger.Warn("failed to release resources", zap.Error(closeErr))
		}
	}()

	start := time.Now()

	for _, s := range steps {
		if err := s(o, cmd.Context()); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, checkStyle.Render(fmt.Sprintf("Done (took %v)", time.Since(start).Round(time.Millisecond))))

	if dir := o.RemoteDir(); dir != "" {
		fmt.Fprintln(out, infoStyle.Render("Remote project directory: "+dir))
	} else if archive := o.ArchivePath(); archive != "" {
		fmt.Fprintln(out, infoStyle.Render("Archive: "+archive))
	}

	return nil
}
