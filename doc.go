// Package hecdeploy deploys a local project onto a remote compute cluster.
//
// # Core Interfaces
//
//   - Runner: anything that runs a Command to completion (local machine, remote session).
//   - Session: one authenticated connection to a cluster. It runs commands, opens
//     interactive login shells and transfers files.
//   - Shell: a byte stream over a pseudo-terminal backed login shell.
//
// # Packages
//
// The providers/ssh package implements Session over SSH and SFTP, providers/local runs
// commands on the operator's machine and providers/mock offers testify-backed doubles.
// The deploy package sequences the deployment pipeline on top of these interfaces.
package hecdeploy
