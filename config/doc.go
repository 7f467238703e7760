// Package config resolves deployment settings from layered sources.
//
// Settings are merged in increasing priority: per-cluster defaults, user
// settings, then inline overrides. A key that no layer provides is not an
// error: the Resolver asks its Prompter for it once and remembers the answer.
package config
