package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ruffel/hecdeploy"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var clusterIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateClusterID rejects identifiers that could escape the defaults directory.
func ValidateClusterID(id string) error {
	if !clusterIDPattern.MatchString(id) {
		return &hecdeploy.ValidationError{
			Field:  KeyClusterID,
			Value:  id,
			Reason: "must contain only letters, digits, '.', '_' or '-'",
		}
	}

	return nil
}

// LoadClusterDefaults reads <dir>/<clusterID>.yml from fsys. A missing file
// yields empty settings: defaults are optional per cluster.
func LoadClusterDefaults(fsys afero.Fs, dir, clusterID string) (Settings, error) {
	if err := ValidateClusterID(clusterID); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, clusterID+".yml")

	data, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		return Settings{}, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read cluster defaults %s: %w", path, err)
	}

	settings := Settings{}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, &hecdeploy.ConfigurationError{Resource: "cluster defaults " + path, Err: err}
	}

	return settings, nil
}

// LoadUserSettings reads a YAML, JSON or TOML settings file from fsys.
func LoadUserSettings(fsys afero.Fs, path string) (Settings, error) {
	v := viper.New()
	v.SetFs(fsys)
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, &hecdeploy.ConfigurationError{Resource: "settings file " + path, Err: err}
	}

	return Settings(v.AllSettings()), nil
}

// ParseOverrides turns key=value pairs into a settings layer.
func ParseOverrides(pairs []string) (Settings, error) {
	settings := Settings{}

	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, &hecdeploy.ValidationError{Field: "override", Value: pair, Reason: "expected key=value"}
		}

		settings[normalizeKey(k)] = v
	}

	return settings, nil
}

// Sources describes every settings layer of a deployment.
type Sources struct {
	// Defaults holds <cluster_id>.yml files under DefaultsDir.
	Defaults    afero.Fs
	DefaultsDir string

	// UserFile is read from UserFs when set. User entries win over the file.
	UserFs   afero.Fs
	UserFile string
	User     Settings

	Overrides Settings
	Prompter  Prompter
}

// Build assembles a Resolver: user and override layers first, then cluster_id is
// resolved (prompting if needed) and that cluster's defaults are underlaid.
func Build(src Sources) (*Resolver, error) {
	user := Settings{}

	if src.UserFile != "" {
		fsys := src.UserFs
		if fsys == nil {
			fsys = afero.NewOsFs()
		}

		fromFile, err := LoadUserSettings(fsys, src.UserFile)
		if err != nil {
			return nil, err
		}

		for k, v := range fromFile {
			user[normalizeKey(k)] = v
		}
	}

	for k, v := range src.User {
		user[normalizeKey(k)] = v
	}

	r := NewResolver(src.Prompter, user, src.Overrides)

	clusterID, err := r.String(KeyClusterID)
	if err != nil {
		return nil, err
	}

	if src.Defaults != nil {
		defaults, err := LoadClusterDefaults(src.Defaults, src.DefaultsDir, clusterID)
		if err != nil {
			return nil, err
		}

		r.Underlay(defaults)
	}

	return r, nil
}
