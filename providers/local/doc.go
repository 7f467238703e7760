// Package local runs hecdeploy commands on the operator's machine.
//
// It is a thin wrapper around "os/exec" used for the environment-capture step
// (exporting the conda environment, freezing pip requirements) before anything
// is sent to the cluster.
//
// Usage:
//
//	r := local.New()
//	res, err := hecdeploy.NewExecutor(r).RunBuffered(ctx, hecdeploy.NewCommand("pip", "freeze"))
package local
