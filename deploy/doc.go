// Package deploy sequences the deployment of a local project to a cluster.
//
// The Orchestrator runs, in order: environment capture, submission script
// generation, archiving, transfer (session, remote path resolution, upload),
// remote unpacking and the job submission placeholder. Every stage is exported
// and may be re-run on its own; Deploy runs them all once and stops at the first
// failure. The remote session is opened lazily by the first stage that needs it
// and is released by Close, which callers must always defer.
package deploy
