package hecdeploy

// Builder assembles a Command step by step.
//
//	cmd := hecdeploy.Cmd("unzip").Args("-q", "-o", "demo.zip").Dir("/home/u/proj").Build()
type Builder struct {
	cmd *Command
}

// Cmd starts a Builder for the given program.
func Cmd(binary string) *Builder {
	return &Builder{cmd: NewCommand(binary)}
}

// Arg appends one argument.
func (b *Builder) Arg(arg string) *Builder {
	b.cmd.Args = append(b.cmd.Args, arg)

	return b
}

// Args appends several arguments.
func (b *Builder) Args(args ...string) *Builder {
	b.cmd.Args = append(b.cmd.Args, args...)

	return b
}

// Env sets an environment variable for the command.
func (b *Builder) Env(key, value string) *Builder {
	b.cmd.Env = append(b.cmd.Env, key+"="+value)

	return b
}

// Dir sets the working directory.
func (b *Builder) Dir(dir string) *Builder {
	b.cmd.Dir = dir

	return b
}

// Build returns the Command.
func (b *Builder) Build() *Command {
	return b.cmd
}
