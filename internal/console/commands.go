package console

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"neoboot/internal/discovery"
	"neoboot/internal/firmware"
)

type command struct {
	name    string
	summary string
	run     func(s *Surface) error
}

var commands []command

func init() {
	commands = []command{
		{name: "help", summary: "show this list", run: (*Surface).cmdHelp},
		{name: "menu", summary: "return to the boot menu", run: (*Surface).leaveCommandLine},
		{name: "disks", summary: "list block devices and partitions", run: (*Surface).cmdDisks},
		{name: "config", summary: "show the boot configuration", run: (*Surface).cmdConfig},
		{name: "clear", summary: "clear the screen", run: (*Surface).cmdClear},
	}
}

// dispatch runs one command line. Surrounding blanks are ignored when
// matching a command name.
func (s *Surface) dispatch(line string) error {
	name := strings.TrimSpace(line)
	if name == "" {
		return nil
	}
	for _, c := range commands {
		if c.name == name {
			s.log.Debug("command", zap.String("name", name))
			return c.run(s)
		}
	}
	s.log.Debug("unknown command", zap.String("line", line))
	return s.print(firmware.AttrWarning, "Unknown Command: "+line+"\n")
}

func (s *Surface) cmdHelp() error {
	var sb strings.Builder
	sb.WriteString("Commands:\n")
	for _, c := range commands {
		fmt.Fprintf(&sb, "  %-8s %s\n", c.name, c.summary)
	}
	sb.WriteString("Press Esc to return to the boot menu.\n")
	return s.print(firmware.AttrNormal, sb.String())
}

func (s *Surface) cmdDisks() error {
	if len(s.diag.Disks) == 0 {
		return s.print(firmware.AttrNormal, "No block devices found.\n")
	}
	for _, d := range s.diag.Disks {
		if err := s.print(firmware.AttrNormal, discovery.Describe(d)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Surface) cmdConfig() error {
	cfg := s.diag.Config
	if cfg.Len() == 0 {
		if err := s.print(firmware.AttrNormal, "No configuration entries.\n"); err != nil {
			return err
		}
	} else if err := s.print(firmware.AttrNormal, cfg.String()); err != nil {
		return err
	}
	for _, e := range cfg.Malformed() {
		if err := s.print(firmware.AttrWarning, fmt.Sprintf("warning: token %q has no value\n", e.Key)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Surface) cmdClear() error {
	if err := s.clear(); err != nil {
		return err
	}
	if err := s.con.SetCursorPosition(0, 0); err != nil {
		return fmt.Errorf("set cursor: %w: %w", ErrConsoleIO, err)
	}
	return nil
}
