package launcher

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Command is one external program invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Runner executes commands on behalf of the Launcher.
type Runner interface {
	// Run executes c and waits for it; a non-zero exit is an error.
	Run(ctx context.Context, c Command) error
	// Start executes c without waiting for it to finish.
	Start(ctx context.Context, c Command) error
}

// ExecRunner runs commands as child processes.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w\n%s", c.Name, err, output)
	}
	return nil
}

// Start does not tie the child to ctx; terminal sessions outlive the launcher.
func (ExecRunner) Start(_ context.Context, c Command) error {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Dir = c.Dir
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", c.Name, err)
	}
	return cmd.Process.Release()
}
