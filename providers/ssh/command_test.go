package ssh

import (
	"testing"

	"github.com/ruffel/hecdeploy"
	"github.com/stretchr/testify/assert"
)

func TestBuildFullCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cmd  *hecdeploy.Command
		want string
	}{
		{
			name: "bare command",
			cmd:  hecdeploy.NewCommand("pwd"),
			want: "pwd",
		},
		{
			name: "arguments are quoted",
			cmd:  hecdeploy.NewCommand("unzip", "-q", "-o", "demo.zip", "-d", "demo"),
			want: "unzip '-q' '-o' 'demo.zip' '-d' 'demo'",
		},
		{
			name: "embedded quotes are escaped",
			cmd:  hecdeploy.NewCommand("echo", "it's"),
			want: `echo 'it'\''s'`,
		},
		{
			name: "injection attempt stays literal",
			cmd:  hecdeploy.NewCommand("echo", "$(rm -rf /); `id`"),
			want: "echo '$(rm -rf /); `id`'",
		},
		{
			name: "dir and env",
			cmd: &hecdeploy.Command{
				Cmd:  "ls",
				Dir:  "/home/u/my proj",
				Env:  []string{"A=1", "MALFORMED", "B=x'y"},
				Args: []string{"-l"},
			},
			want: `export A='1'; export B='x'\''y'; cd '/home/u/my proj' && ls '-l'`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, buildFullCommand(tt.cmd))
		})
	}
}
