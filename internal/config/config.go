// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"firestige.xyz/pktforge/internal/core"
	"firestige.xyz/pktforge/internal/parse"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `pktforge:` root key in YAML.
type GlobalConfig struct {
	Log    LogConfig    `mapstructure:"log"`
	Packet PacketConfig `mapstructure:"packet"`
	Send   SendConfig   `mapstructure:"send"`
	Output OutputConfig `mapstructure:"output"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`   // trace / debug / info / warn / error
	Pattern string           `mapstructure:"pattern"` // %time %level %field %msg %caller %func %goroutine
	Time    string           `mapstructure:"time"`    // Go time layout for %time
	Output  string           `mapstructure:"output"`  // stdout / stderr
	File    FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`  // MB
	MaxAgeDays int  `mapstructure:"max_age_days"` // Days
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Packet Defaults ───

// PacketConfig holds default construction parameters. CLI flags override
// every field.
type PacketConfig struct {
	SrcIP      string `mapstructure:"src_ip"`
	DstIP      string `mapstructure:"dst_ip"`
	SrcMAC     string `mapstructure:"src_mac"` // Empty = 00:00:00:00:00:00
	DstMAC     string `mapstructure:"dst_mac"` // Empty = broadcast
	SrcPort    uint16 `mapstructure:"src_port"`
	DstPort    uint16 `mapstructure:"dst_port"`
	Protocol   string `mapstructure:"protocol"`    // tcp / udp
	IPBitfield string `mapstructure:"ip_bitfield"` // hex byte, e.g. "0x40"
	Payload    string `mapstructure:"payload"`
	PayloadHex string `mapstructure:"payload_hex"` // Takes precedence over Payload
}

// ─── Send ───

// SendConfig controls the raw socket sink.
type SendConfig struct {
	Interface  string   `mapstructure:"interface"`  // Empty = first match of Interfaces
	Interfaces []string `mapstructure:"interfaces"` // glob patterns in priority order
	TimeoutMS  int      `mapstructure:"timeout_ms"`
	Retries    int      `mapstructure:"retries"`
	Count      int      `mapstructure:"count"`
	Workers    int      `mapstructure:"workers"` // 0 = GOMAXPROCS
	DryRun     bool     `mapstructure:"dry_run"`
}

// ─── Output ───

// OutputConfig controls debug output written next to a send.
type OutputConfig struct {
	DebugFile      string `mapstructure:"debug_file"`
	DebugFormat    string `mapstructure:"debug_format"` // pcap / json / yaml
	IncludeRawData bool   `mapstructure:"include_raw_data"`
	Indent         string `mapstructure:"indent"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `pktforge: ...`.
type configRoot struct {
	Pktforge GlobalConfig `mapstructure:"pktforge"`
}

// Load loads configuration from file. An empty path skips the file and
// uses defaults plus environment overrides.
// The YAML file uses `pktforge:` as root key; env vars use the PKTFORGE_ prefix (e.g., PKTFORGE_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `pktforge.` key prefix maps to `PKTFORGE_` in env vars via the key replacer.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Pktforge

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *GlobalConfig {
	cfg, err := Load("")
	if err != nil {
		// Defaults are static; failing here is a programming error.
		panic(err)
	}
	return cfg
}

// setDefaults sets default values for configuration.
// All keys use "pktforge." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("pktforge.log.level", "info")
	v.SetDefault("pktforge.log.pattern", "%time [%level] %field: %msg\n")
	v.SetDefault("pktforge.log.time", "2006-01-02 15:04:05.000")
	v.SetDefault("pktforge.log.output", "stderr")
	v.SetDefault("pktforge.log.file.enabled", false)
	v.SetDefault("pktforge.log.file.path", "pktforge.log")
	v.SetDefault("pktforge.log.file.rotation.max_size_mb", 100)
	v.SetDefault("pktforge.log.file.rotation.max_age_days", 30)
	v.SetDefault("pktforge.log.file.rotation.max_backups", 5)
	v.SetDefault("pktforge.log.file.rotation.compress", true)

	// Packet defaults
	v.SetDefault("pktforge.packet.src_ip", "")
	v.SetDefault("pktforge.packet.dst_ip", "")
	v.SetDefault("pktforge.packet.src_mac", "")
	v.SetDefault("pktforge.packet.dst_mac", "")
	v.SetDefault("pktforge.packet.src_port", 12345)
	v.SetDefault("pktforge.packet.dst_port", 80)
	v.SetDefault("pktforge.packet.protocol", "tcp")
	v.SetDefault("pktforge.packet.ip_bitfield", "0x00")
	v.SetDefault("pktforge.packet.payload", "Hello, Network!")
	v.SetDefault("pktforge.packet.payload_hex", "")

	// Send defaults
	v.SetDefault("pktforge.send.interface", "")
	v.SetDefault("pktforge.send.interfaces", []string{"eth0", "enp0s3", "wlan0", "lo"})
	v.SetDefault("pktforge.send.timeout_ms", 1000)
	v.SetDefault("pktforge.send.retries", 3)
	v.SetDefault("pktforge.send.count", 1)
	v.SetDefault("pktforge.send.workers", 0)
	v.SetDefault("pktforge.send.dry_run", false)

	// Output defaults
	v.SetDefault("pktforge.output.debug_file", "")
	v.SetDefault("pktforge.output.debug_format", "json")
	v.SetDefault("pktforge.output.include_raw_data", true)
	v.SetDefault("pktforge.output.indent", "  ")
}

// ValidateAndApplyDefaults validates configuration and normalizes values.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: invalid log level: %s (must be trace/debug/info/warn/error)", core.ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Output != "stdout" && cfg.Log.Output != "stderr" {
		return fmt.Errorf("%w: invalid log output: %s (must be stdout/stderr)", core.ErrConfigInvalid, cfg.Log.Output)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Path == "" {
		return fmt.Errorf("%w: log.file.path is required when log.file.enabled=true", core.ErrConfigInvalid)
	}

	// ── Packet validation ──
	cfg.Packet.Protocol = strings.ToLower(cfg.Packet.Protocol)
	if cfg.Packet.Protocol != "tcp" && cfg.Packet.Protocol != "udp" {
		return fmt.Errorf("%w: invalid packet.protocol: %s (must be tcp/udp)", core.ErrConfigInvalid, cfg.Packet.Protocol)
	}
	if _, err := parse.Hex(cfg.Packet.IPBitfield); err != nil {
		return fmt.Errorf("%w: packet.ip_bitfield: %v", core.ErrConfigInvalid, err)
	}
	for name, mac := range map[string]string{"src_mac": cfg.Packet.SrcMAC, "dst_mac": cfg.Packet.DstMAC} {
		if mac == "" {
			continue
		}
		if _, err := parse.MAC(mac); err != nil {
			return fmt.Errorf("%w: packet.%s: %v", core.ErrConfigInvalid, name, err)
		}
	}
	if cfg.Packet.PayloadHex != "" {
		if _, err := parse.HexBytes(cfg.Packet.PayloadHex); err != nil {
			return fmt.Errorf("%w: packet.payload_hex: %v", core.ErrConfigInvalid, err)
		}
	}

	// ── Send validation ──
	if cfg.Send.TimeoutMS < 0 {
		return fmt.Errorf("%w: send.timeout_ms must be >= 0", core.ErrConfigInvalid)
	}
	if cfg.Send.Retries < 0 {
		return fmt.Errorf("%w: send.retries must be >= 0", core.ErrConfigInvalid)
	}
	if cfg.Send.Count < 1 {
		cfg.Send.Count = 1
	}
	if cfg.Send.Interface == "" && len(cfg.Send.Interfaces) == 0 {
		return fmt.Errorf("%w: send.interface or send.interfaces is required", core.ErrConfigInvalid)
	}

	// ── Output validation ──
	cfg.Output.DebugFormat = strings.ToLower(cfg.Output.DebugFormat)
	switch cfg.Output.DebugFormat {
	case "pcap", "json", "yaml", "yml":
	default:
		return fmt.Errorf("%w: invalid output.debug_format: %s (must be pcap/json/yaml)", core.ErrConfigInvalid, cfg.Output.DebugFormat)
	}

	return nil
}
