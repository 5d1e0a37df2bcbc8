package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/cjeanneret/irdapower/internal/audit"
	"github.com/cjeanneret/irdapower/internal/auth"
	"github.com/cjeanneret/irdapower/internal/config"
	"github.com/cjeanneret/irdapower/internal/debug"
	"github.com/cjeanneret/irdapower/internal/hw/gpio"
	"github.com/cjeanneret/irdapower/internal/hw/pinctrl"
	"github.com/cjeanneret/irdapower/internal/hw/pmic"
	"github.com/cjeanneret/irdapower/internal/hw/regulator"
	"github.com/cjeanneret/irdapower/internal/logic/power"
	"github.com/cjeanneret/irdapower/internal/mcptools"
	"github.com/cjeanneret/irdapower/internal/web"
	"github.com/mark3labs/mcp-go/server"
)

const version = "0.3.0"

func main() {
	// CLI flags
	webPort := &webPortFlag{}
	flag.Var(webPort, "web", "web server port; -web= uses server.port from the config, -web 8980 for a custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	setVal := flag.String("set", "", "write power_cfg once (0 or 1) and exit")
	get := flag.Bool("get", false, "print power_cfg once and exit")
	powerType := flag.Int("power_type", -1, "override device.power_type (0-3)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.ValidateConfigPath(*cfgPath); err != nil {
		log.Fatalf("invalid config path: %v", err)
	}
	if err := validateCLIOverrides(*powerType, *setVal); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	config.ApplyEnvOverrides(cfg)
	applyOverrides(cfg, *powerType)

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)
	debug.Value("Mock hardware", cfg.Defaults.MockHW)
	if debug.IsEnabled(debug.LevelVerbose) {
		debug.PrintStruct("Config", redacted(cfg))
	}

	kind, err := cfg.PowerKind()
	if err != nil {
		debug.Warn("%v", err)
	}
	debug.Value("Power type", kind)

	broadcaster := web.NewStatusBroadcaster()

	var auditLog *audit.Logger
	if cfg.Audit.Enabled {
		f, err := os.OpenFile(cfg.Audit.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			debug.Warn("could not open audit log %q: %v, audit logging disabled", cfg.Audit.LogPath, err)
		} else {
			auditLog = audit.NewLogger(f)
			defer f.Close()
		}
	}

	// Initialize hardware and device
	debug.Step(1, "Initializing hardware")
	hw, closeHW, err := buildHardware(cfg, kind)
	if err != nil {
		log.Fatalf("init hardware failed: %v", err)
	}
	defer closeHW()

	debug.Step(2, "Initializing "+kind.String()+" power backend")
	dev, err := power.New(kind, hw,
		power.WithName(cfg.Device.Name),
		power.WithObserver(newObserver(broadcaster, auditLog)),
	)
	if err != nil {
		log.Fatalf("init power device failed: %v (errno %d)", err, power.Errno(err))
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.Printf("releasing power device failed: %v", err)
		}
	}()

	if *get || *setVal != "" {
		if err := runOnce(dev, *setVal, *get, os.Stdout); err != nil {
			log.Printf("%s: %v", power.AttrName, err)
			dev.Close()
			closeHW()
			os.Exit(1)
		}
		return
	}

	port := webPort.port(cfg.Server.Port)
	if port <= 0 {
		log.Fatalf("no web port configured; set server.port or use -web")
	}
	debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

	opts := []web.Option{web.WithMiddleware(auth.NewAuthMiddleware(cfg.Server.AuthToken))}
	if cfg.Server.MCP {
		mcpSrv := mcptools.NewServer("irdapower", version, mcptools.PowerTools(dev))
		opts = append(opts, web.WithMCP(server.NewStreamableHTTPServer(mcpSrv)))
	}
	if cfg.Server.AuthToken == "" {
		debug.Warn("no auth token configured, HTTP surface is unauthenticated")
	}

	srv := web.NewServer(fmt.Sprintf(":%d", port), web.NewHandlers(dev, broadcaster), opts...)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("web server: %v", err)
	}
}

// buildHardware prepares the collaborators of the selected kind only. The
// returned closer releases the GPIO driver, if one was opened.
func buildHardware(cfg *config.Config, kind power.Kind) (power.Hardware, func(), error) {
	hw := power.Hardware{GPIOLine: cfg.GPIO.PowerLine}
	closer := func() {}

	switch kind {
	case power.KindGpio:
		drv, err := gpio.NewDriver(cfg.GPIODriver(), cfg.LineTable())
		if err != nil {
			return hw, closer, err
		}
		hw.GPIO = drv
		closer = func() {
			if err := drv.Close(); err != nil {
				log.Printf("closing GPIO driver failed: %v", err)
			}
		}

	case power.KindInternalLdo:
		if cfg.Defaults.MockHW {
			hw.OpenRegulator = func() (power.Regulator, error) { return &regulator.Mock{}, nil }
			hw.OpenPinMux = func() (power.PinMux, error) { return &pinctrl.Mock{}, nil }
			break
		}
		reg := cfg.InternalLDO.Regulator
		hw.OpenRegulator = func() (power.Regulator, error) {
			r, err := regulator.OpenSysfs(reg.Name, reg.StatePath)
			if err != nil {
				return nil, err
			}
			return r, nil
		}
		pc := cfg.Pinctrl()
		hw.OpenPinMux = func() (power.PinMux, error) {
			h, err := pinctrl.Get(pc, nil)
			if err != nil {
				return nil, err
			}
			return h, nil
		}

	case power.KindExternalLdo:
		if !pmic.Available {
			debug.Warn("built without extpmic, external ldo requests will fail")
		}
		hw.PMIC = pmic.NewClient(cfg.ExternalLDO.PMICRoot)
	}

	return hw, closer, nil
}

// newObserver fans device events out to SSE clients and the audit log.
func newObserver(b *web.StatusBroadcaster, auditLog *audit.Logger) func(power.Event) {
	return func(ev power.Event) {
		b.BroadcastPower(ev)
		if err := auditLog.Record(ev); err != nil {
			debug.Error(fmt.Errorf("audit: %w", err))
		}
	}
}

// attrDevice is the attribute surface used by the one-shot mode.
type attrDevice interface {
	Show() string
	Store(buf string) (int, error)
}

// runOnce performs the -set write, then the -get read.
// redacted returns a copy of cfg safe to log.
func redacted(cfg *config.Config) config.Config {
	c := *cfg
	if c.Server.AuthToken != "" {
		c.Server.AuthToken = "***"
	}
	return c
}

func runOnce(dev attrDevice, setVal string, get bool, w io.Writer) error {
	if setVal != "" {
		if _, err := dev.Store(setVal + "\n"); err != nil {
			return fmt.Errorf("write %q: %w (errno %d)", setVal, err, power.Errno(err))
		}
	}
	if get {
		if _, err := io.WriteString(w, dev.Show()); err != nil {
			return err
		}
	}
	return nil
}

// validateCLIOverrides checks flag values before the config is loaded.
// -1 for powerType and "" for setVal mean "not given".
func validateCLIOverrides(powerType int, setVal string) error {
	if powerType != -1 && (powerType < 0 || powerType > int(power.KindOther)) {
		return fmt.Errorf("power_type must be between 0 and %d, got %d", int(power.KindOther), powerType)
	}
	if setVal != "" {
		if _, err := power.ParseRequest(setVal); err != nil {
			return fmt.Errorf("set: %w", err)
		}
	}
	return nil
}

// applyOverrides mutates cfg with CLI overrides.
func applyOverrides(cfg *config.Config, powerType int) {
	if powerType >= 0 {
		pt := powerType
		cfg.Device.PowerType = &pt
	}
}

// webPortFlag implements flag.Value for -web: unset = config port, -web= = config port, -web 8980 → 8980.
type webPortFlag struct {
	val int
}

func (w *webPortFlag) String() string {
	if w == nil || w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = 0
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

// port returns the flag value, or fallback when the flag was not given a port.
func (w *webPortFlag) port(fallback int) int {
	if w.val > 0 {
		return w.val
	}
	return fallback
}
