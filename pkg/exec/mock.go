package exec

import (
	"strings"
)

// MockCommandExecutor records commands instead of running them.
type MockCommandExecutor struct {
	Commands []string

	LookPathFunc func(file string) (string, error)
	RunFunc      func(name string, arg ...string) error
}

func (m *MockCommandExecutor) LookPath(file string) (string, error) {
	if m.LookPathFunc != nil {
		return m.LookPathFunc(file)
	}
	return "/path/to/" + file, nil
}

func (m *MockCommandExecutor) Run(name string, arg ...string) error {
	cmdStr := name
	if len(arg) > 0 {
		cmdStr = name + " " + strings.Join(arg, " ")
	}
	m.Commands = append(m.Commands, cmdStr)

	if m.RunFunc != nil {
		return m.RunFunc(name, arg...)
	}
	return nil
}
