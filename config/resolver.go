package config

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/ruffel/hecdeploy"
	"github.com/spf13/cast"
)

// ErrNoPrompter is returned when a key is missing and nobody can be asked for it.
var ErrNoPrompter = errors.New("no value configured and no prompter available")

// Settings maps setting keys to scalar values.
type Settings map[string]any

// Resolver is the effective view over all setting layers.
type Resolver struct {
	mu       sync.Mutex
	values   Settings
	prompted map[string]bool
	prompter Prompter
}

// NewResolver merges layers in order, later layers winning on key collisions.
// prompter may be nil, in which case missing keys are errors.
func NewResolver(prompter Prompter, layers ...Settings) *Resolver {
	r := &Resolver{
		values:   Settings{},
		prompted: map[string]bool{},
		prompter: prompter,
	}

	for _, layer := range layers {
		for k, v := range layer {
			r.values[normalizeKey(k)] = v
		}
	}

	return r
}

// Get returns the value of key, prompting for it if no layer provides it.
// A prompted value is cached, so the operator is asked at most once per key.
func (r *Resolver) Get(key string) (any, error) {
	key = normalizeKey(key)

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.values[key]; ok {
		return v, nil
	}

	if r.prompter == nil {
		return nil, &hecdeploy.ConfigurationError{Resource: "setting " + key, Err: ErrNoPrompter}
	}

	v, err := r.prompter.Prompt(key)
	if err != nil {
		return nil, fmt.Errorf("prompt for %s: %w", key, err)
	}

	r.values[key] = v
	r.prompted[key] = true

	return v, nil
}

// String returns key as a string.
func (r *Resolver) String(key string) (string, error) {
	v, err := r.Get(key)
	if err != nil {
		return "", err
	}

	s, err := cast.ToStringE(v)
	if err != nil {
		return "", &hecdeploy.ValidationError{Field: key, Value: fmt.Sprint(v), Reason: err.Error()}
	}

	return s, nil
}

// Bool returns key as a bool.
func (r *Resolver) Bool(key string) (bool, error) {
	v, err := r.Get(key)
	if err != nil {
		return false, err
	}

	b, err := cast.ToBoolE(v)
	if err != nil {
		return false, &hecdeploy.ValidationError{Field: key, Value: fmt.Sprint(v), Reason: err.Error()}
	}

	return b, nil
}

// Int returns key as an int.
func (r *Resolver) Int(key string) (int, error) {
	v, err := r.Get(key)
	if err != nil {
		return 0, err
	}

	i, err := cast.ToIntE(v)
	if err != nil {
		return 0, &hecdeploy.ValidationError{Field: key, Value: fmt.Sprint(v), Reason: err.Error()}
	}

	return i, nil
}

// Lookup returns the value of an optional key without prompting.
func (r *Resolver) Lookup(key string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.values[normalizeKey(key)]

	return v, ok
}

// LookupString is Lookup coerced to a string. Unset or empty values report false.
func (r *Resolver) LookupString(key string) (string, bool) {
	v, ok := r.Lookup(key)
	if !ok {
		return "", false
	}

	s := cast.ToString(v)

	return s, s != ""
}

// LookupBool is Lookup coerced to a bool. Unset or unparseable values report false.
func (r *Resolver) LookupBool(key string) bool {
	v, ok := r.Lookup(key)
	if !ok {
		return false
	}

	return cast.ToBool(v)
}

// Set stores value for key with the highest priority.
func (r *Resolver) Set(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.values[normalizeKey(key)] = value
}

// Underlay adds defaults below every existing layer: keys that are already set,
// whether configured or prompted, keep their values.
func (r *Resolver) Underlay(defaults Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, v := range defaults {
		k = normalizeKey(k)
		if _, ok := r.values[k]; !ok {
			r.values[k] = v
		}
	}
}

// Prompted reports whether key was obtained from the prompter.
func (r *Resolver) Prompted(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.prompted[normalizeKey(key)]
}

// Settings returns a copy of the effective settings.
func (r *Resolver) Settings() Settings {
	r.mu.Lock()
	defer r.mu.Unlock()

	return maps.Clone(r.values)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
