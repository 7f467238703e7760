package ssh

import (
	"fmt"
	"strings"

	"github.com/ruffel/hecdeploy"
	"golang.org/x/crypto/ssh"
)

// shellQuote wraps s in single quotes for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// buildEnvPrefix constructs the environment variable prefix for SSH commands.
// OpenSSH defaults PermitUserEnvironment=no, so session.Setenv() cannot be
// relied on and variables are exported inline instead.
func buildEnvPrefix(envVars []string) string {
	var envPrefix strings.Builder

	for _, env := range envVars {
		k, v, found := strings.Cut(env, "=")
		if !found {
			continue // Skip malformed env
		}

		fmt.Fprintf(&envPrefix, "export %s=%s; ", k, shellQuote(v))
	}

	return envPrefix.String()
}

// buildDirPrefix constructs the directory change prefix for SSH commands.
func buildDirPrefix(dir string) string {
	if dir == "" {
		return ""
	}

	return "cd " + shellQuote(dir) + " && "
}

// buildTerminalModes returns the terminal modes for a PTY.
func buildTerminalModes() ssh.TerminalModes {
	return ssh.TerminalModes{
		ssh.ECHO:          1,     // enable echoing
		ssh.TTY_OP_ISPEED: 14400, // input speed = 14.4kbaud
		ssh.TTY_OP_OSPEED: 14400, // output speed = 14.4kbaud
	}
}

// buildFullCommand constructs the command line sent over the exec channel:
// exported variables, an optional cd and the quoted command itself.
func buildFullCommand(cmd *hecdeploy.Command) string {
	var b strings.Builder

	b.WriteString(buildEnvPrefix(cmd.Env))
	b.WriteString(buildDirPrefix(cmd.Dir))
	b.WriteString(cmd.Cmd)

	for _, arg := range cmd.Args {
		b.WriteString(" ")
		b.WriteString(shellQuote(arg))
	}

	return b.String()
}
