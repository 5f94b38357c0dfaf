package agent

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"neoboot/internal/bootcfg"
	"neoboot/internal/console"
	"neoboot/internal/discovery"
	"neoboot/internal/firmware"
	"neoboot/internal/menu"
)

// Session is one run of the boot agent against a set of firmware services.
type Session struct {
	svc      firmware.Services
	settings Settings
	log      *zap.Logger
	onBoot   console.BootFunc
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithBootHook sets the function called for the entry the operator boots.
// Without it the selection is only logged.
func WithBootHook(fn console.BootFunc) SessionOption {
	return func(s *Session) { s.onBoot = fn }
}

// NewSession returns a session using svc.
func NewSession(svc firmware.Services, settings Settings, log *zap.Logger, opts ...SessionOption) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{svc: svc, settings: settings, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run discovers disks, loads the configuration and runs the console until
// the operator leaves the menu. A fatal error is shown on the console and
// acknowledged with a key before it is returned.
func (s *Session) Run() error {
	res, err := discovery.New(s.svc.Block, s.log).Scan()
	if err != nil {
		s.log.Error("disk discovery failed", zap.Error(err))
		s.reportFatal(err)
		return err
	}

	cfg, cfgErr := bootcfg.Load(s.svc.Files, s.settings.ConfigPath, s.log)
	notices := Notices(res, cfg, cfgErr)

	state := menu.New(menu.BuildEntries(res.Disks, cfg))
	s.log.Info("starting boot menu",
		zap.Int("disks", len(res.Disks)),
		zap.Int("entries", state.Len()),
		zap.Int("notices", len(notices)),
	)

	surface := console.New(s.svc.Console, state,
		console.WithTitle(s.settings.Title),
		console.WithNotices(notices...),
		console.WithDiagnostics(console.Diagnostics{Disks: res.Disks, Config: cfg}),
		console.WithCommandCapacity(s.settings.CommandBuffer),
		console.WithBootHook(s.boot),
		console.WithLogger(s.log),
	)
	if err := surface.Run(); err != nil {
		s.log.Error("console failed", zap.Error(err))
		s.reportFatal(err)
		return err
	}
	s.log.Info("boot menu closed")
	return nil
}

func (s *Session) boot(e menu.Entry) error {
	s.log.Info("boot requested",
		zap.String("entry", e.Name),
		zap.Bool("from_config", e.FromConfig()),
		zap.Int("disk", e.Disk),
		zap.Int("partition", e.Partition),
	)
	if s.onBoot == nil {
		return nil
	}
	return s.onBoot(e)
}

// reportFatal prints err in the error attribute and waits for a key. The
// console may be the thing that failed, so its errors are only logged.
func (s *Session) reportFatal(err error) {
	con := s.svc.Console
	if con == nil {
		return
	}
	steps := []func() error{
		con.ClearScreen,
		func() error { return con.SetAttribute(firmware.AttrError) },
		func() error { return con.OutputString(fmt.Sprintf("Fatal error: %v\n", err)) },
		func() error { return con.SetAttribute(firmware.AttrNormal) },
		func() error { return con.OutputString("Press any key to continue.\n") },
		func() error { _, err := con.ReadKey(); return err },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			s.log.Warn("failed to report fatal error", zap.Error(err))
			return
		}
	}
}

// Notices turns non-fatal discovery and configuration problems into the
// warning lines shown under the menu.
func Notices(res discovery.Result, cfg *bootcfg.Table, cfgErr error) []string {
	var out []string
	if n := len(res.Warnings); n > 0 {
		out = append(out, fmt.Sprintf("%d disk warning(s); type 'disks' in the command line for details", n))
	}
	switch {
	case errors.Is(cfgErr, bootcfg.ErrNotFound):
		out = append(out, "Configuration file not found; no configured entries")
	case cfgErr != nil:
		out = append(out, fmt.Sprintf("Configuration unavailable: %v", cfgErr))
	}
	if bad := cfg.Malformed(); len(bad) > 0 {
		out = append(out, fmt.Sprintf("Configuration has %d malformed token(s)", len(bad)))
	}
	return out
}
