package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sweeney/zigbee-light/internal/config"
	"github.com/sweeney/zigbee-light/internal/zigbee"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants.
func TestEnvVarNames(t *testing.T) {
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		if got != canonical {
			t.Errorf("env var constant: got %q, want %q", got, canonical)
		}
	}
}

func TestReadHostInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readHostInfo()
	if info == nil {
		t.Fatal("expected non-nil HostInfo")
	}
	if info.Type != "wifi" {
		t.Errorf("Type: got %q, want wifi", info.Type)
	}
	if info.IP != "192.168.1.100" {
		t.Errorf("IP: got %q", info.IP)
	}
	if info.Gateway != "192.168.1.1" {
		t.Errorf("Gateway: got %q", info.Gateway)
	}
	if info.SSID != "MyNetwork" {
		t.Errorf("SSID: got %q", info.SSID)
	}
}

func TestReadHostInfoNoStatus(t *testing.T) {
	t.Setenv(envNetworkStatus, "")
	t.Setenv(envNetworkIP, "192.168.1.100")

	if info := readHostInfo(); info != nil {
		t.Errorf("expected nil without NETWORK_STATUS, got %+v", info)
	}
}

func TestSignalName(t *testing.T) {
	tests := []struct {
		sig  os.Signal
		want string
	}{
		{syscall.SIGINT, "SIGINT"},
		{syscall.SIGTERM, "SIGTERM"},
		{syscall.SIGHUP, "UNKNOWN"},
	}
	for _, tt := range tests {
		if got := signalName(tt.sig); got != tt.want {
			t.Errorf("signalName(%v): got %q, want %q", tt.sig, got, tt.want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"verbose": zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q): got %v, want %v", in, got, want)
		}
	}
}

func TestSetupLoggingJSON(t *testing.T) {
	var buf bytes.Buffer
	l := setupLogging(&buf, "info", true)
	l.Info().Str("component", "test").Msg("hello")
	l.Debug().Msg("hidden")

	out := buf.String()
	if !strings.Contains(out, `"message":"hello"`) || !strings.Contains(out, `"component":"test"`) {
		t.Errorf("unexpected JSON log line: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug line written at info level")
	}
}

func TestStateStringPressed(t *testing.T) {
	if got := stateString(true); got != "PRESSED" {
		t.Errorf("got %q, want PRESSED", got)
	}
	if got := stateString(false); got != "RELEASED" {
		t.Errorf("got %q, want RELEASED", got)
	}
}

// writeConfig writes a simulated-hardware config persisting to a temp DB.
func writeConfig(t *testing.T, storePath string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := fmt.Sprintf("gpio:\n  simulated: true\nzigbee:\n  store_path: %q\nlog:\n  level: error\n", storePath)
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := rootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.Execute()
	return out.String(), err
}

func TestStateNoNetwork(t *testing.T) {
	db := filepath.Join(t.TempDir(), "zigbee.db")
	out, err := execArgs(t, "--config", writeConfig(t, db), "state")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if !strings.Contains(out, "Button: RELEASED") {
		t.Errorf("missing button line: %q", out)
	}
	if !strings.Contains(out, "Network: none") {
		t.Errorf("missing network line: %q", out)
	}
}

func TestStateShowsSavedNetwork(t *testing.T) {
	db := filepath.Join(t.TempDir(), "zigbee.db")
	store, err := zigbee.OpenCredentialStore(db)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Save(zigbee.Credentials{Channel: 15, PanID: 0x1a62}); err != nil {
		t.Fatalf("save: %v", err)
	}
	store.Close()

	out, err := execArgs(t, "--config", writeConfig(t, db), "state")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if !strings.Contains(out, "channel 15, pan_id 0x1a62") {
		t.Errorf("missing network line: %q", out)
	}
}

func TestForgetClearsNetwork(t *testing.T) {
	db := filepath.Join(t.TempDir(), "zigbee.db")
	store, err := zigbee.OpenCredentialStore(db)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Save(zigbee.Credentials{Channel: 20, PanID: 0xBEEF}); err != nil {
		t.Fatalf("save: %v", err)
	}
	store.Close()

	cfgPath := writeConfig(t, db)
	if _, err := execArgs(t, "--config", cfgPath, "forget"); err != nil {
		t.Fatalf("forget: %v", err)
	}

	out, err := execArgs(t, "--config", cfgPath, "state")
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if !strings.Contains(out, "Network: none") {
		t.Errorf("credentials survived forget: %q", out)
	}
}

func TestForgetRequiresStorePath(t *testing.T) {
	if _, err := execArgs(t, "--config", writeConfig(t, ""), "forget"); err == nil {
		t.Error("expected error without store_path")
	}
}

func TestBadConfigFails(t *testing.T) {
	if _, err := execArgs(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "state"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestStatusConfigCarriesDevice(t *testing.T) {
	c := config.Default()
	c.Zigbee.Model = "Hallway Lamp"

	sc := statusConfig(c)
	if sc.Device.Manufacturer != "Espressif" {
		t.Errorf("Manufacturer: got %q, want Espressif", sc.Device.Manufacturer)
	}
	if sc.Device.Model != "Hallway Lamp" {
		t.Errorf("Model: got %q, want Hallway Lamp", sc.Device.Model)
	}
	if sc.Device.ColorCapabilities != 0x0009 {
		t.Errorf("ColorCapabilities: got 0x%04x, want 0x0009", sc.Device.ColorCapabilities)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	c := config.Default()
	c.GPIO.Simulated = true
	c.Zigbee.JoinDelay = config.Duration(time.Millisecond)
	c.Zigbee.Networks = []config.NetworkConfig{{Channel: 11, PanID: 0x1234}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, c, zerolog.Nop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}
