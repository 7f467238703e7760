// Package remotepath translates symbolic remote paths such as "$HOME/work" into
// absolute paths on the cluster.
//
// SFTP does not expand shell variables, and variables exported by profile scripts
// are only set in interactive login shells. The Resolver therefore opens a shell,
// waits for the login banner to go quiet, and asks the shell to echo the path
// followed by a unique end-of-response marker. Reads are bounded by a timeout and
// a failed exchange is retried with a fresh marker.
package remotepath
