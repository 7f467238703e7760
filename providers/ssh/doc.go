// Package ssh provides an implementation of the hecdeploy.Session interface for
// cluster login nodes reached over SSH.
//
// It utilizes "golang.org/x/crypto/ssh" to manage the connection, providing:
//   - Interactive login shells with PTY allocation
//   - One-shot command execution with context cancellation
//   - File transfers (Upload/Download) via SFTP
//   - Host key verification against an OpenSSH known_hosts file
//
// The trust model is selected by Config.KnownHostsPath. When it is empty any host
// key is accepted; this keeps first use simple and is deliberately insecure. When
// it names an existing file, unknown or mismatched keys fail the connection. When
// it names a file that does not exist, New fails with a configuration error rather
// than falling back to accepting any key.
//
// Usage:
//
//	s, err := ssh.New(ctx,
//		ssh.WithHost("login.cluster.example.org"),
//		ssh.WithUser("alice"),
//		ssh.WithKnownHosts("~/.ssh/known_hosts"),
//	)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
package ssh
