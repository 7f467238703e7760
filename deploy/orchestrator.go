package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/ruffel/hecdeploy"
	"github.com/ruffel/hecdeploy/archive"
	"github.com/ruffel/hecdeploy/assets"
	"github.com/ruffel/hecdeploy/config"
	"github.com/ruffel/hecdeploy/fileutil"
	"github.com/ruffel/hecdeploy/progress"
	"github.com/ruffel/hecdeploy/providers/local"
	"github.com/ruffel/hecdeploy/remotepath"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// File names inside the project directory.
const (
	EnvironmentFile  = "environment.yml"
	RequirementsFile = "requirements.txt"
	SubmissionScript = "submit_job.sh"
)

// legacyRemoteDirKey is read when remote_dir is not configured.
const legacyRemoteDirKey = "remote_project_dir"

var errNotUploaded = errors.New("no archive has been uploaded yet")

// Orchestrator deploys one project to one cluster over at most one session.
type Orchestrator struct {
	cfg         *config.Resolver
	fs          afero.Fs
	projectDir  string
	templates   afero.Fs
	local       hecdeploy.Runner
	dial        Dialer
	resolver    *remotepath.Resolver
	archiver    archive.Archiver
	logger      *zap.Logger
	progressOut io.Writer
	hook        func(Stage)

	mu            sync.Mutex
	session       hecdeploy.Session
	stage         Stage
	envName       string
	archivePath   string
	remoteBase    string
	remoteArchive string
	remoteDir     string
	transferred   progress.Snapshot
}

// New creates an Orchestrator reading its settings from cfg.
func New(cfg *config.Resolver, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		cfg:       cfg,
		fs:        afero.NewOsFs(),
		templates: assets.Templates(),
		dial:      SSHDialer,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.projectDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine project directory: %w", err)
		}

		o.projectDir = wd
	}

	o.projectDir = filepath.Clean(o.projectDir)

	if o.local == nil {
		o.local = local.New()
	}

	if o.resolver == nil {
		o.resolver = remotepath.New(remotepath.WithLogger(o.logger))
	}

	if o.archiver == nil {
		o.archiver = archive.Zipper{Fs: o.fs}
	}

	return o, nil
}

// State returns the last stage that completed.
func (o *Orchestrator) State() Stage {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.stage
}

// EnvName returns the environment name without spaces, once captured.
func (o *Orchestrator) EnvName() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.envName
}

// ArchivePath returns the local archive path, once archived.
func (o *Orchestrator) ArchivePath() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.archivePath
}

// RemoteArchive returns the absolute remote path of the uploaded archive.
func (o *Orchestrator) RemoteArchive() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.remoteArchive
}

// RemoteDir returns the active remote project directory, once unpacked.
func (o *Orchestrator) RemoteDir() string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.remoteDir
}

// Progress returns the final progress of the last upload.
func (o *Orchestrator) Progress() progress.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.transferred
}

// Deploy runs every stage once, in order. The first failure aborts the pipeline
// and is returned; no stage is retried.
func (o *Orchestrator) Deploy(ctx context.Context) error {
	o.logger.Info("deploying project", zap.String("project", o.projectDir))

	stages := []struct {
		name string
		run  func(context.Context) error
	}{
		{"capture environment", o.CaptureEnvironment},
		{"generate submission script", o.GenerateScript},
		{"archive project", o.Archive},
		{"transfer archive", o.Transfer},
		{"unpack archive", o.Unpack},
		{"submit job", o.Submit},
	}

	for _, s := range stages {
		if err := s.run(ctx); err != nil {
			o.logger.Error("deployment aborted", zap.String("stage", s.name), zap.Error(err))

			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	o.advance(StageDone)
	o.logger.Info("project deployed", zap.String("remote_dir", o.RemoteDir()))

	return nil
}

// GenerateScript copies the template for the configured cluster_id into the
// project as the submission script. A cluster without a template is a
// *hecdeploy.ConfigurationError.
func (o *Orchestrator) GenerateScript(_ context.Context) error {
	clusterID, err := o.cfg.String(config.KeyClusterID)
	if err != nil {
		return err
	}

	if err := config.ValidateClusterID(clusterID); err != nil {
		return err
	}

	name := clusterID + ".sh"

	data, err := afero.ReadFile(o.templates, name)
	if err != nil {
		return &hecdeploy.ConfigurationError{Resource: "submission template for cluster " + clusterID, Err: err}
	}

	dst := filepath.Join(o.projectDir, SubmissionScript)
	if err := afero.WriteFile(o.fs, dst, data, 0o755); err != nil {
		return fmt.Errorf("failed to write submission script: %w", err)
	}

	// WriteFile keeps the mode of an existing file.
	if err := o.fs.Chmod(dst, 0o755); err != nil {
		return fmt.Errorf("failed to make submission script executable: %w", err)
	}

	o.logger.Debug("generated submission script", zap.String("template", name), zap.String("path", dst))
	o.advance(StageScriptGenerated)

	return nil
}

// Archive packs the project directory into the archive, replacing any previous one.
func (o *Orchestrator) Archive(ctx context.Context) error {
	dst, err := o.archiveTarget()
	if err != nil {
		return err
	}

	o.logger.Info("archiving project", zap.String("archive", dst))

	if err := o.archiver.Archive(ctx, o.projectDir, dst); err != nil {
		return fmt.Errorf("failed to archive project: %w", err)
	}

	o.mu.Lock()
	o.archivePath = dst
	o.mu.Unlock()

	o.advance(StageArchived)

	return nil
}

// Transfer uploads the archive into the remote base directory, opening the
// session and resolving a symbolic remote_dir first if needed. The archive is
// validated before any network use.
func (o *Orchestrator) Transfer(ctx context.Context) error {
	localArchive, err := o.uploadSource()
	if err != nil {
		return err
	}

	sess, err := o.acquireSession(ctx)
	if err != nil {
		return err
	}

	o.advance(StageSessionEstablished)

	remoteDir, err := o.remoteDirSetting()
	if err != nil {
		return err
	}

	base, err := o.resolver.Resolve(ctx, remoteDir, sess.OpenShell)
	if err != nil {
		return err
	}

	o.mu.Lock()
	o.remoteBase = base
	o.mu.Unlock()

	o.logger.Debug("remote base directory", zap.String("configured", remoteDir), zap.String("resolved", base))
	o.advance(StagePathResolved)

	name := filepath.Base(localArchive)
	remoteArchive := path.Join(base, name)

	if err := fileutil.CheckRemotePathTraversal(base, remoteArchive); err != nil {
		return &hecdeploy.ValidationError{Field: "archive name", Value: name, Reason: err.Error()}
	}

	var reporterOpts []progress.Option
	if o.progressOut != nil {
		reporterOpts = append(reporterOpts, progress.WithBar(o.progressOut, "uploading "+name))
	}

	reporter := progress.New(reporterOpts...)

	o.logger.Info("uploading archive", zap.String("local", localArchive), zap.String("remote", remoteArchive))

	err = sess.Upload(ctx, localArchive, remoteArchive, hecdeploy.WithProgress(reporter.Callback()))

	reporter.Finish()

	if err != nil {
		return fmt.Errorf("failed to upload archive: %w", err)
	}

	o.mu.Lock()
	o.remoteArchive = remoteArchive
	o.transferred = reporter.Snapshot()
	o.mu.Unlock()

	o.advance(StageUploaded)

	return nil
}

// Unpack extracts the uploaded archive next to itself into a directory named
// after the archive without its extension, and makes that the active remote
// project directory. A non-zero exit of unzip is a *hecdeploy.ExitError.
func (o *Orchestrator) Unpack(ctx context.Context) error {
	o.mu.Lock()
	remoteArchive, sess := o.remoteArchive, o.session
	o.mu.Unlock()

	if remoteArchive == "" || sess == nil {
		return errNotUploaded
	}

	dir, name := path.Split(remoteArchive)
	dir = path.Clean(dir)
	stem := strings.TrimSuffix(name, path.Ext(name))

	cmd := hecdeploy.Cmd("unzip").
		Args("-q", "-o", "-DD", name, "-d", stem).
		Dir(dir).
		Build()

	o.logger.Info("unpacking archive", zap.Stringer("command", cmd), zap.String("dir", dir))

	if _, err := hecdeploy.NewExecutor(sess).RunBuffered(ctx, cmd); err != nil {
		return fmt.Errorf("failed to unpack archive: %w", err)
	}

	o.mu.Lock()
	o.remoteDir = path.Join(dir, stem)
	o.mu.Unlock()

	o.advance(StageUnpacked)

	return nil
}

// Submit is the job submission placeholder. It only logs.
func (o *Orchestrator) Submit(_ context.Context) error {
	o.logger.Info("job submission is not implemented; submit the job manually",
		zap.String("remote_dir", o.RemoteDir()),
		zap.String("script", SubmissionScript),
	)

	o.advance(StageSubmissionStub)

	return nil
}

// Close releases the remote session, if one was opened, and the local runner.
// It is safe to call more than once.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	sess := o.session
	o.session = nil
	o.mu.Unlock()

	var result *multierror.Error

	if sess != nil {
		if err := sess.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close session: %w", err))
		}
	}

	if c, ok := o.local.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

// acquireSession dials on first use. A failed dial caches nothing.
func (o *Orchestrator) acquireSession(ctx context.Context) (hecdeploy.Session, error) {
	o.mu.Lock()
	sess := o.session
	o.mu.Unlock()

	if sess != nil {
		return sess, nil
	}

	o.logger.Info("opening remote session")

	sess, err := o.dial(ctx, o.cfg)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	o.session = sess
	o.mu.Unlock()

	return sess, nil
}

// archiveTarget is archive_path when set, else <env name>.zip next to the project.
func (o *Orchestrator) archiveTarget() (string, error) {
	if p, ok := o.cfg.LookupString(config.KeyArchivePath); ok {
		if err := validateArchiveName(p); err != nil {
			return "", err
		}

		return filepath.Clean(p), nil
	}

	name, err := o.ensureEnvName()
	if err != nil {
		return "", err
	}

	return filepath.Join(filepath.Dir(o.projectDir), name+".zip"), nil
}

// uploadSource returns the local archive to upload after checking it is an
// existing ZIP file.
func (o *Orchestrator) uploadSource() (string, error) {
	o.mu.Lock()
	p := o.archivePath
	o.mu.Unlock()

	if p == "" {
		var err error
		if p, err = o.archiveTarget(); err != nil {
			return "", err
		}
	}

	if err := validateArchiveName(p); err != nil {
		return "", err
	}

	info, err := o.fs.Stat(p)
	if err != nil || info.IsDir() {
		return "", &hecdeploy.ValidationError{Field: "archive", Value: p, Reason: "no such archive file"}
	}

	return p, nil
}

func (o *Orchestrator) remoteDirSetting() (string, error) {
	if legacy, ok := o.cfg.LookupString(legacyRemoteDirKey); ok {
		if _, set := o.cfg.Lookup(config.KeyRemoteDir); !set {
			return legacy, nil
		}
	}

	return o.cfg.String(config.KeyRemoteDir)
}

func (o *Orchestrator) advance(s Stage) {
	o.mu.Lock()
	o.stage = s
	o.mu.Unlock()

	if o.hook != nil {
		o.hook(s)
	}
}

func validateArchiveName(p string) error {
	if !strings.EqualFold(filepath.Ext(p), ".zip") {
		return &hecdeploy.ValidationError{Field: "archive", Value: p, Reason: "must be a .zip file"}
	}

	if strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)) == "" {
		return &hecdeploy.ValidationError{Field: "archive", Value: p, Reason: "archive name is empty"}
	}

	return nil
}
