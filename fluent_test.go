package hecdeploy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder(t *testing.T) {
	t.Parallel()

	cmd := Cmd("unzip").
		Arg("-q").
		Args("-o", "-DD", "demo.zip").
		Dir("/home/u/proj").
		Env("LANG", "C").
		Build()

	assert.Equal(t, "unzip", cmd.Cmd)
	assert.Equal(t, []string{"-q", "-o", "-DD", "demo.zip"}, cmd.Args)
	assert.Equal(t, "/home/u/proj", cmd.Dir)
	assert.Equal(t, []string{"LANG=C"}, cmd.Env)
	assert.NoError(t, cmd.Validate())
}

func TestBuilder_NoArgs(t *testing.T) {
	t.Parallel()

	cmd := Cmd("hostname").Build()

	assert.Equal(t, "hostname", cmd.String())
	assert.Nil(t, cmd.Args)
}
