package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"firestige.xyz/pktforge/internal/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return configPath
}

func TestLoadValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
pktforge:
  log:
    level: "DEBUG"
    output: "stdout"
  packet:
    src_ip: "192.168.1.100"
    dst_ip: "192.168.1.1"
    src_mac: "00:11:22:33:44:55"
    src_port: 8080
    dst_port: 443
    protocol: "UDP"
    ip_bitfield: "0x40"
  send:
    interfaces:
      - "eth*"
      - "lo"
    timeout_ms: 250
    retries: 5
    dry_run: true
  output:
    debug_file: "/tmp/out.pcap"
    debug_format: "pcap"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Log.Output != "stdout" {
		t.Errorf("Expected log output stdout, got %s", cfg.Log.Output)
	}
	if cfg.Packet.SrcIP != "192.168.1.100" || cfg.Packet.DstIP != "192.168.1.1" {
		t.Errorf("Unexpected addresses %s -> %s", cfg.Packet.SrcIP, cfg.Packet.DstIP)
	}
	if cfg.Packet.SrcPort != 8080 || cfg.Packet.DstPort != 443 {
		t.Errorf("Unexpected ports %d -> %d", cfg.Packet.SrcPort, cfg.Packet.DstPort)
	}
	if cfg.Packet.Protocol != "udp" {
		t.Errorf("Expected protocol udp, got %s", cfg.Packet.Protocol)
	}
	if cfg.Packet.IPBitfield != "0x40" {
		t.Errorf("Expected bitfield 0x40, got %s", cfg.Packet.IPBitfield)
	}
	if len(cfg.Send.Interfaces) != 2 || cfg.Send.Interfaces[0] != "eth*" {
		t.Errorf("Unexpected interfaces %v", cfg.Send.Interfaces)
	}
	if cfg.Send.TimeoutMS != 250 || cfg.Send.Retries != 5 || !cfg.Send.DryRun {
		t.Errorf("Unexpected send config %+v", cfg.Send)
	}
	if cfg.Output.DebugFile != "/tmp/out.pcap" || cfg.Output.DebugFormat != "pcap" {
		t.Errorf("Unexpected output config %+v", cfg.Output)
	}
	// Untouched keys keep their defaults.
	if cfg.Packet.Payload != "Hello, Network!" {
		t.Errorf("Expected default payload, got %q", cfg.Packet.Payload)
	}
	if !cfg.Output.IncludeRawData {
		t.Error("Expected include_raw_data default true")
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load without file failed: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.Log.Level)
	}
	if cfg.Packet.SrcPort != 12345 || cfg.Packet.DstPort != 80 {
		t.Errorf("Expected default ports 12345 -> 80, got %d -> %d", cfg.Packet.SrcPort, cfg.Packet.DstPort)
	}
	if cfg.Packet.Protocol != "tcp" {
		t.Errorf("Expected default protocol tcp, got %s", cfg.Packet.Protocol)
	}
	want := []string{"eth0", "enp0s3", "wlan0", "lo"}
	if len(cfg.Send.Interfaces) != len(want) {
		t.Fatalf("Expected interfaces %v, got %v", want, cfg.Send.Interfaces)
	}
	for i := range want {
		if cfg.Send.Interfaces[i] != want[i] {
			t.Errorf("Interface %d: expected %s, got %s", i, want[i], cfg.Send.Interfaces[i])
		}
	}
	if cfg.Send.Count != 1 {
		t.Errorf("Expected default count 1, got %d", cfg.Send.Count)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PKTFORGE_LOG_LEVEL", "warn")
	t.Setenv("PKTFORGE_PACKET_DST_PORT", "53")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Expected env log level warn, got %s", cfg.Log.Level)
	}
	if cfg.Packet.DstPort != 53 {
		t.Errorf("Expected env dst port 53, got %d", cfg.Packet.DstPort)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	if err == nil {
		t.Fatal("Expected error for missing config file, got nil")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"log level", "pktforge:\n  log:\n    level: \"verbose\"\n"},
		{"log output", "pktforge:\n  log:\n    output: \"syslog\"\n"},
		{"protocol", "pktforge:\n  packet:\n    protocol: \"icmp\"\n"},
		{"bitfield", "pktforge:\n  packet:\n    ip_bitfield: \"0xZZ\"\n"},
		{"src mac", "pktforge:\n  packet:\n    src_mac: \"00:11:22\"\n"},
		{"payload hex", "pktforge:\n  packet:\n    payload_hex: \"ABC\"\n"},
		{"timeout", "pktforge:\n  send:\n    timeout_ms: -1\n"},
		{"retries", "pktforge:\n  send:\n    retries: -2\n"},
		{"debug format", "pktforge:\n  output:\n    debug_format: \"csv\"\n"},
		{"log file path", "pktforge:\n  log:\n    file:\n      enabled: true\n      path: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !errors.Is(err, core.ErrConfigInvalid) {
				t.Errorf("Expected ErrConfigInvalid, got %v", err)
			}
		})
	}
}

func TestValidateClampsCount(t *testing.T) {
	cfg := Default()
	cfg.Send.Count = 0

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		t.Fatalf("ValidateAndApplyDefaults failed: %v", err)
	}
	if cfg.Send.Count != 1 {
		t.Errorf("Expected count clamped to 1, got %d", cfg.Send.Count)
	}
}
