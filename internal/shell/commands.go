package shell

import (
	"fmt"
	"sync"

	"github.com/chzyer/readline"
	tui "github.com/network-plane/planetui"
)

const selectedDiskKey = "selected_disk"

// commandFactory adapts a run function to planetui's factory and command
// interfaces.
type commandFactory struct {
	spec tui.CommandSpec
	run  func(rt tui.CommandRuntime, input tui.CommandInput) tui.CommandResult
}

type command struct {
	f *commandFactory
}

func (f *commandFactory) Spec() tui.CommandSpec { return f.spec }

func (f *commandFactory) New(rt tui.CommandRuntime) (tui.Command, error) {
	return &command{f: f}, nil
}

func (c *command) Spec() tui.CommandSpec { return c.f.spec }

func (c *command) Execute(rt tui.CommandRuntime, input tui.CommandInput) tui.CommandResult {
	return c.f.run(rt, input)
}

func emit(rt tui.CommandRuntime, lines []Line) {
	for _, l := range lines {
		switch l.Level {
		case LevelWarn:
			rt.Output().Warn(l.Text)
		case LevelError:
			rt.Output().Error(l.Text)
		default:
			rt.Output().Info(l.Text)
		}
	}
}

func success() tui.CommandResult {
	return tui.CommandResult{Status: tui.StatusSuccess}
}

func failure(rt tui.CommandRuntime, err error) tui.CommandResult {
	rt.Output().Error(err.Error())
	return tui.CommandResult{
		Status: tui.StatusSuccess,
		Error:  &tui.CommandError{Message: err.Error()},
	}
}

func (s *Shell) factories() []tui.CommandFactory {
	return []tui.CommandFactory{
		&commandFactory{
			spec: tui.CommandSpec{
				Name:        "list",
				Summary:     "List block devices",
				Description: "Lists every block device with its media and GPT status.",
				Context:     "disk",
				Aliases:     []string{"ls", "disks"},
			},
			run: func(rt tui.CommandRuntime, _ tui.CommandInput) tui.CommandResult {
				emit(rt, s.DiskLines())
				return success()
			},
		},
		&commandFactory{
			spec: tui.CommandSpec{
				Name:        "rescan",
				Summary:     "Scan block devices again",
				Description: "Re-runs disk discovery and replaces the snapshot.",
				Context:     "disk",
				Aliases:     []string{"scan"},
			},
			run: func(rt tui.CommandRuntime, _ tui.CommandInput) tui.CommandResult {
				if err := s.Refresh(); err != nil {
					return failure(rt, err)
				}
				emit(rt, s.DiskLines())
				return success()
			},
		},
		&commandFactory{
			spec: tui.CommandSpec{
				Name:        "select",
				Summary:     "Select a disk to view partitions",
				Description: "Selects a disk by name (disk0) or index and switches to the partition context.",
				Context:     "disk",
				Aliases:     []string{"sel", "disk"},
				Args: []tui.ArgSpec{
					{Name: "disk", Type: tui.ArgTypeString, Required: true, Description: "Disk name or index"},
				},
			},
			run: func(rt tui.CommandRuntime, input tui.CommandInput) tui.CommandResult {
				d, err := s.Disk(input.Args.String("disk"))
				if err != nil {
					return failure(rt, err)
				}
				rt.Session().Set(selectedDiskKey, d.Device.String())
				rt.NavigateTo("partition", nil)
				rt.Output().Info(fmt.Sprintf("Selected disk: %s", d.Device))
				return success()
			},
		},
		&commandFactory{
			spec: tui.CommandSpec{
				Name:        "list",
				Summary:     "List partitions on the selected disk",
				Description: "Lists the active GPT partitions of the selected disk.",
				Context:     "partition",
				Aliases:     []string{"ls", "partitions"},
			},
			run: func(rt tui.CommandRuntime, _ tui.CommandInput) tui.CommandResult {
				val, ok := rt.Session().Get(selectedDiskKey)
				name, isString := val.(string)
				if !ok || !isString {
					return failure(rt, fmt.Errorf("no disk selected, use 'select <disk>' first"))
				}
				lines, err := s.PartitionLines(name)
				if err != nil {
					return failure(rt, err)
				}
				emit(rt, lines)
				return success()
			},
		},
		&commandFactory{
			spec: tui.CommandSpec{
				Name:        "show",
				Summary:     "Show the boot configuration",
				Description: "Prints the parsed key/value table including malformed tokens.",
				Context:     "config",
				Aliases:     []string{"config"},
			},
			run: func(rt tui.CommandRuntime, _ tui.CommandInput) tui.CommandResult {
				emit(rt, s.ConfigLines())
				return success()
			},
		},
		&commandFactory{
			spec: tui.CommandSpec{
				Name:        "entries",
				Summary:     "Show the boot menu entries",
				Description: "Lists the entries the boot menu would offer for the current snapshot.",
				Context:     "config",
				Aliases:     []string{"menu"},
			},
			run: func(rt tui.CommandRuntime, _ tui.CommandInput) tui.CommandResult {
				emit(rt, s.EntryLines())
				return success()
			},
		},
	}
}

var registerOnce sync.Once

// register adds the shell's contexts and commands to planetui. planetui keeps
// a process-wide registry, so only the first shell is registered.
func (s *Shell) register() {
	registerOnce.Do(func() {
		tui.RegisterContext("disk", "Block device commands")
		tui.RegisterContext("partition", "Partition commands")
		tui.RegisterContext("config", "Boot configuration commands")
		for _, f := range s.factories() {
			tui.RegisterCommand(f)
		}
	})
}

// Run starts the interactive console and blocks until the operator exits.
func (s *Shell) Run(prompt, historyFile string) error {
	s.register()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to start readline: %w", err)
	}
	defer func() {
		_ = rl.Close()
	}()

	return tui.Run(rl)
}
