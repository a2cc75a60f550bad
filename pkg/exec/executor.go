package exec

// CommandExecutor runs external programs. Tests swap in MockCommandExecutor.
type CommandExecutor interface {
	// LookPath searches PATH for an executable named file.
	LookPath(file string) (string, error)

	// Run starts name with the caller's terminal attached and waits for it
	// to exit.
	Run(name string, arg ...string) error
}
