package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cjeanneret/irdapower/internal/hw/gpio"
	"github.com/cjeanneret/irdapower/internal/hw/pinctrl"
	"github.com/cjeanneret/irdapower/internal/logic/power"
	"gopkg.in/yaml.v3"
)

// MaxConfigFileBytes caps the size of a config file read by Load.
const MaxConfigFileBytes = 64 * 1024

// ConfigDir is the directory a config file must live in.
const ConfigDir = "configs"

// DeviceConfig selects the transceiver power path.
type DeviceConfig struct {
	Name string `yaml:"name"` // device name in logs, default "irda_maxim"
	// PowerType is 0=gpio, 1=internal ldo, 2=external ldo, 3=other.
	// Missing or out of range falls back to gpio.
	PowerType *int `yaml:"power_type,omitempty"`
}

// GPIOConfig describes the power enable line.
type GPIOConfig struct {
	Driver    string         `yaml:"driver"`     // rpio, periph or mock
	PowerLine string         `yaml:"power_line"` // line name, default "gpio_power_control"
	Lines     map[string]int `yaml:"lines"`      // line name -> BCM number
}

// RegulatorConfig locates the reg-userspace-consumer state attribute.
type RegulatorConfig struct {
	Name      string `yaml:"name"`       // e.g. "vdd_irda"
	StatePath string `yaml:"state_path"` // e.g. /sys/devices/platform/irda-ldo/state
}

// PinctrlConfig describes the UART pin group and its mux states.
type PinctrlConfig struct {
	Command  string            `yaml:"command"`   // default "pinctrl"
	LockPath string            `yaml:"lock_path"` // claimed while the group is held
	Pins     []int             `yaml:"pins"`      // TX, RX
	States   map[string]string `yaml:"states"`    // "default" and "idle" -> pinctrl function args
}

// InternalLDOConfig groups the on-board regulator path settings.
type InternalLDOConfig struct {
	Regulator RegulatorConfig `yaml:"regulator"`
	Pinctrl   PinctrlConfig   `yaml:"pinctrl"`
}

// ExternalLDOConfig locates the external PMIC sysfs node.
type ExternalLDOConfig struct {
	PMICRoot string `yaml:"pmic_root"`
}

// ServerConfig holds network and authentication settings.
type ServerConfig struct {
	Port      int    `yaml:"port"`
	AuthToken string `yaml:"auth_token"`
	MCP       bool   `yaml:"mcp"` // mount the MCP endpoint on /mcp
}

// AuditConfig controls the write request log.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	LogPath string `yaml:"log_path"`
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockHW     bool `yaml:"mock_hw"`     // use in-memory hardware (true=dev/test, false=real board)
}

// Config aggregates all application configuration.
type Config struct {
	Device      DeviceConfig      `yaml:"device"`
	GPIO        GPIOConfig        `yaml:"gpio"`
	InternalLDO InternalLDOConfig `yaml:"internal_ldo"`
	ExternalLDO ExternalLDOConfig `yaml:"external_ldo"`
	Server      ServerConfig      `yaml:"server"`
	Audit       AuditConfig       `yaml:"audit"`
	Defaults    DefaultsConfig    `yaml:"defaults"`
}

// DefaultConfig returns a Config populated with default values.
// Each call returns a distinct instance.
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{Name: power.DefaultName},
		GPIO: GPIOConfig{
			Driver:    gpio.KindRPi,
			PowerLine: power.DefaultGPIOLine,
			Lines:     map[string]int{},
		},
		InternalLDO: InternalLDOConfig{
			Regulator: RegulatorConfig{Name: "vdd_irda"},
			Pinctrl: PinctrlConfig{
				Command:  "pinctrl",
				LockPath: "/run/irdapower/uart.lock",
				Pins:     []int{14, 15},
				States: map[string]string{
					pinctrl.StateDefault: "a0",
					pinctrl.StateIdle:    "ip pd",
				},
			},
		},
		ExternalLDO: ExternalLDOConfig{PMICRoot: "/sys/class/hw_extern_pmic"},
		Server:      ServerConfig{Port: 8080, MCP: true},
		Audit:       AuditConfig{LogPath: "/var/log/irdapower/audit.log"},
		Defaults:    DefaultsConfig{DebugLevel: 1},
	}
}

// ValidateConfigPath rejects paths that escape the configs directory or do
// not name a .yaml file.
func ValidateConfigPath(path string) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return fmt.Errorf("config path %q must not contain ..", path)
		}
	}
	clean := filepath.Clean(path)
	if filepath.Ext(clean) != ".yaml" {
		return fmt.Errorf("config path %q must end in .yaml", path)
	}
	if filepath.Base(filepath.Dir(clean)) != ConfigDir {
		return fmt.Errorf("config path %q must be inside a %s/ directory", path, ConfigDir)
	}
	return nil
}

// Load reads a YAML file over the defaults and returns the configuration.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if len(data) > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file larger than %d bytes", MaxConfigFileBytes)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Device.Name == "" {
		c.Device.Name = power.DefaultName
	}
	if c.GPIO.PowerLine == "" {
		c.GPIO.PowerLine = power.DefaultGPIOLine
	}
	if c.InternalLDO.Pinctrl.Command == "" {
		c.InternalLDO.Pinctrl.Command = "pinctrl"
	}

	switch c.GPIO.Driver {
	case "", gpio.KindRPi, gpio.KindPeriph, gpio.KindMock:
	default:
		return fmt.Errorf("gpio.driver must be rpio, periph or mock, got %q", c.GPIO.Driver)
	}
	for name, pin := range c.GPIO.Lines {
		if !gpio.ValidPin(pin) {
			return fmt.Errorf("gpio.lines.%s: invalid line number %d", name, pin)
		}
		if c.GPIO.Driver != gpio.KindPeriph && c.GPIO.Driver != gpio.KindMock && pin > gpio.MaxBCMPin {
			return fmt.Errorf("gpio.lines.%s: %d is not a BCM line (rpio driver)", name, pin)
		}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535, got %d", c.Server.Port)
	}
	if c.Audit.Enabled && c.Audit.LogPath == "" {
		return errors.New("audit.log_path is required when audit is enabled")
	}
	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("defaults.debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	return nil
}

// ApplyEnvOverrides updates c in place with values from environment variables.
// Recognized variables:
//   - IRDAPOWER_AUTH_TOKEN overrides c.Server.AuthToken
//   - IRDAPOWER_POWER_TYPE overrides c.Device.PowerType
//   - IRDAPOWER_DEBUG_LEVEL overrides c.Defaults.DebugLevel
//
// Values that do not parse as integers are ignored.
func ApplyEnvOverrides(c *Config) {
	if token := os.Getenv("IRDAPOWER_AUTH_TOKEN"); token != "" {
		c.Server.AuthToken = token
	}
	if v := os.Getenv("IRDAPOWER_POWER_TYPE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Device.PowerType = &n
		}
	}
	if v := os.Getenv("IRDAPOWER_DEBUG_LEVEL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 4 {
			c.Defaults.DebugLevel = n
		}
	}
}

// PowerKind returns the configured power path. A bad value yields
// power.KindGpio together with an error the caller may log.
func (c *Config) PowerKind() (power.Kind, error) {
	return power.ParseKind(c.Device.PowerType)
}

// GPIODriver returns the driver name to use, honoring mock_hw.
func (c *Config) GPIODriver() string {
	if c.Defaults.MockHW {
		return gpio.KindMock
	}
	return c.GPIO.Driver
}

// LineTable returns the line name table, with the power line mapped to a
// placeholder in mock mode when it is not listed.
func (c *Config) LineTable() map[string]int {
	lines := make(map[string]int, len(c.GPIO.Lines)+1)
	for name, pin := range c.GPIO.Lines {
		lines[name] = pin
	}
	if _, ok := lines[c.GPIO.PowerLine]; !ok && c.Defaults.MockHW {
		lines[c.GPIO.PowerLine] = 0
	}
	return lines
}

// Pinctrl converts the pin group settings for the pinctrl package.
func (c *Config) Pinctrl() pinctrl.Config {
	p := c.InternalLDO.Pinctrl
	return pinctrl.Config{
		Command:  p.Command,
		LockPath: p.LockPath,
		Pins:     append([]int(nil), p.Pins...),
		States:   p.States,
	}
}
