package main

import (
	"io"
	"os"

	"github.com/ruffel/hecdeploy/assets"
	"github.com/ruffel/hecdeploy/config"
	"github.com/ruffel/hecdeploy/deploy"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// rootOptions holds the persistent flags shared by every deployment command.
type rootOptions struct {
	project      string
	settingsFile string
	overrides    []string
	cluster      string
	defaultsDir  string
	templatesDir string
	verbose      bool
	noProgress   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "hecdeploy",
		Short:         "Deploy a project to a compute cluster",
		Long:          `Captures the project's environment, archives it, uploads it over SSH and unpacks it on the cluster.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.project, "project", "p", "", "Project directory (default: working directory)")
	flags.StringVar(&opts.settingsFile, "settings", "", "User settings file (YAML, JSON or TOML)")
	flags.StringArrayVar(&opts.overrides, "set", nil, "Override a setting, as key=value (repeatable)")
	flags.StringVarP(&opts.cluster, "cluster", "c", "", "Cluster ID, shorthand for --set cluster_id=<id>")
	flags.StringVar(&opts.defaultsDir, "defaults-dir", "", "Directory of <cluster_id>.yml files shadowing the built-in defaults")
	flags.StringVar(&opts.templatesDir, "templates-dir", "", "Directory of <cluster_id>.sh files shadowing the built-in templates")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "Do not render upload progress")

	rootCmd.AddCommand(
		newDeployCmd(opts),
		newEnvCmd(opts),
		newScriptCmd(opts),
		newArchiveCmd(opts),
		newTransferCmd(opts),
		newHostsCmd(),
	)

	return rootCmd
}

// settings builds the layered settings, prompting on the command's input for
// anything missing.
func (o *rootOptions) settings(cmd *cobra.Command) (*config.Resolver, error) {
	overrides, err := config.ParseOverrides(o.overrides)
	if err != nil {
		return nil, err
	}

	if o.cluster != "" {
		overrides[config.KeyClusterID] = o.cluster
	}

	return config.Build(config.Sources{
		Defaults:  assets.Overlay(assets.Clusters(), o.defaultsDir),
		UserFile:  o.settingsFile,
		Overrides: overrides,
		Prompter:  newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()),
	})
}

// orchestrator wires an Orchestrator for the command. Callers must Close it.
func (o *rootOptions) orchestrator(cmd *cobra.Command, logger *zap.Logger) (*deploy.Orchestrator, error) {
	cfg, err := o.settings(cmd)
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()

	opts := []deploy.Option{
		deploy.WithFs(afero.NewOsFs()),
		deploy.WithTemplates(assets.Overlay(assets.Templates(), o.templatesDir)),
		deploy.WithLogger(logger),
		deploy.WithStageHook(func(s deploy.Stage) {
			_, _ = io.WriteString(out, stepStyle.Render("✓ "+s.String())+"\n")
		}),
	}

	if o.project != "" {
		opts = append(opts, deploy.WithProjectDir(o.project))
	}

	if !o.noProgress {
		opts = append(opts, deploy.WithProgressOutput(cmd.ErrOrStderr()))
	}

	return deploy.New(cfg, opts...)
}

// newLogger builds a development logger when verbose, else a production one
// that only reports warnings and errors.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

// newPrompter asks interactively on a terminal and line by line otherwise.
func newPrompter(in io.Reader, out io.Writer) config.Prompter {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return config.PromptuiPrompter{Stdin: f, Stdout: os.Stderr}
	}

	return config.NewLinePrompter(in, out)
}
