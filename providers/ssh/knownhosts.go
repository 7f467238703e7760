package ssh

import (
	"encoding/base64"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ruffel/hecdeploy"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ParsePublicKey decodes a host key given as its type (e.g. "ssh-ed25519") and
// base64 body, the form printed by ssh-keyscan.
func ParsePublicKey(keyType, b64 string) (ssh.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, &hecdeploy.ValidationError{Field: "host key", Value: b64, Reason: err.Error()}
	}

	key, err := ssh.ParsePublicKey(raw)
	if err != nil {
		return nil, &hecdeploy.ValidationError{Field: "host key", Value: keyType, Reason: err.Error()}
	}

	if key.Type() != keyType {
		return nil, &hecdeploy.ValidationError{
			Field:  "host key type",
			Value:  keyType,
			Reason: "key data is of type " + key.Type(),
		}
	}

	return key, nil
}

// AddKnownHost appends a trust entry for host to the known_hosts file at path,
// creating the file and its directory if needed. host may carry a port
// ("example.org:2222"); non-default ports are written in [host]:port form.
func AddKnownHost(path, host string, key ssh.PublicKey) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create known_hosts directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open known_hosts: %w", err)
	}

	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintln(f, knownhosts.Line([]string{normalizeHost(host)}, key)); err != nil {
		return fmt.Errorf("failed to write known_hosts: %w", err)
	}

	return f.Close()
}

func normalizeHost(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return knownhosts.Normalize(host)
	}

	return knownhosts.Normalize(net.JoinHostPort(host, strconv.Itoa(DefaultPort)))
}
