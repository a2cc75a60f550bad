package exec

import (
	"fmt"
	"io"
	"os"
	"os/exec"
)

// ExitError reports a program that ran but exited non-zero.
type ExitError struct {
	Name string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d", e.Name, e.Code)
}

// RealCommandExecutor runs programs through os/exec.
type RealCommandExecutor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// NewRealCommandExecutor attaches programs to the process's own stdio.
func NewRealCommandExecutor() *RealCommandExecutor {
	return &RealCommandExecutor{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
}

func (e *RealCommandExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (e *RealCommandExecutor) Run(name string, arg ...string) error {
	cmd := exec.Command(name, arg...)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr

	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return &ExitError{Name: name, Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}
