package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/olivier-w/callbar/internal/session"
)

func noEnv(string) (string, bool) { return "", false }

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(Defaults()) = %v", err)
	}
	if cfg.BarCount != 15 {
		t.Fatalf("BarCount = %d, want 15", cfg.BarCount)
	}
	if cfg.BaseURL != session.DefaultBaseURL || cfg.ParticipantName != "Anonymous" {
		t.Fatalf("unexpected session defaults: %q %q", cfg.BaseURL, cfg.ParticipantName)
	}
	if cfg.Position != BottomRight || cfg.Theme != ThemeLight || cfg.Size != SizeMedium {
		t.Fatalf("unexpected layout defaults: %+v", cfg)
	}
}

func TestLoadFromReader(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`
assistant_id: asst-1
theme: dark
size: large
bar_count: 9
demo:
  enabled: true
  fail_after: 30s
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.AssistantID != "asst-1" || cfg.Theme != ThemeDark || cfg.Size != SizeLarge || cfg.BarCount != 9 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.Demo.Enabled || cfg.Demo.FailAfter != 30*time.Second {
		t.Fatalf("unexpected demo config: %+v", cfg.Demo)
	}
	if cfg.Position != BottomRight {
		t.Fatalf("Position = %q, want default kept", cfg.Position)
	}
}

func TestLoadFromReaderEmpty(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.BarCount != DefaultBarCount {
		t.Fatalf("BarCount = %d", cfg.BarCount)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	if _, err := LoadFromReader(strings.NewReader("colour: red\n")); err == nil {
		t.Fatal("expected unknown field error")
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Position = "middle"
	cfg.Theme = "neon"
	cfg.Size = "huge"
	cfg.PrimaryColor = "blue"
	cfg.BarCount = 0
	cfg.LogLevel = "loud"
	cfg.BaseURL = "ftp://example.com"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"position", "theme", "size", "primary_color", "bar_count", "log_level", "base_url"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestValidateAllowsMissingAssistant(t *testing.T) {
	cfg := Defaults()
	cfg.AssistantID = ""
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestFromAttributes(t *testing.T) {
	cfg, err := FromAttributes(map[string]string{
		"assistant-id":     " asst-9 ",
		"base-url":         "https://example.com",
		"participant-name": "",
		"position":         "top-left",
		"theme":            "custom",
		"primary-color":    "#FF0000",
		"size":             "small",
		"auto-connect":     "true",
	})
	if err != nil {
		t.Fatalf("FromAttributes: %v", err)
	}
	if cfg.AssistantID != "asst-9" {
		t.Fatalf("AssistantID = %q", cfg.AssistantID)
	}
	if cfg.ParticipantName != "Anonymous" {
		t.Fatalf("empty attribute should keep default, got %q", cfg.ParticipantName)
	}
	if !cfg.Position.Top() || !cfg.Position.Left() {
		t.Fatalf("Position = %q", cfg.Position)
	}
	if !cfg.AutoConnect || cfg.Size.BarWidth() != 1 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestFromAttributesAutoConnect(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"false", false},
		{"", false},
		{"yes", false},
	}
	for _, tt := range tests {
		cfg, err := FromAttributes(map[string]string{"auto-connect": tt.value})
		if err != nil {
			t.Fatalf("FromAttributes(%q): %v", tt.value, err)
		}
		if cfg.AutoConnect != tt.want {
			t.Fatalf("auto-connect %q = %v, want %v", tt.value, cfg.AutoConnect, tt.want)
		}
	}
}

func TestFromAttributesUnknown(t *testing.T) {
	if _, err := FromAttributes(map[string]string{"bar-count": "3"}); err == nil {
		t.Fatal("expected unknown attribute error")
	}
}

func TestResolvePrecedence(t *testing.T) {
	cfgPath := writeFile(t, "callbar.yaml", "assistant_id: from-file\ntheme: dark\nsize: small\nbar_count: 7\n")
	envPath := writeFile(t, ".env", "CALLBAR_THEME=light\nCALLBAR_SIZE=large\nCALLBAR_POSITION=top-right\n")

	cfg, err := Resolve([]string{
		"--config", cfgPath,
		"--env-file", envPath,
		"--size", "medium",
	}, envMap(map[string]string{"CALLBAR_POSITION": "top-left"}))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.AssistantID != "from-file" || cfg.BarCount != 7 {
		t.Fatalf("file values lost: %+v", cfg)
	}
	if cfg.Theme != ThemeLight {
		t.Fatalf("Theme = %q, want dotenv value", cfg.Theme)
	}
	if cfg.Position != TopLeft {
		t.Fatalf("Position = %q, want environment over dotenv", cfg.Position)
	}
	if cfg.Size != SizeMedium {
		t.Fatalf("Size = %q, want flag value", cfg.Size)
	}
}

func TestResolveFlags(t *testing.T) {
	cfg, err := Resolve([]string{
		"--assistant-id", "asst",
		"--auto-connect",
		"--bar-count", "21",
		"--demo-file", "voice.wav",
		"--demo-fail-after", "5s",
		"--log-level", "DEBUG",
	}, noEnv)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !cfg.AutoConnect || cfg.BarCount != 21 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.Demo.Enabled || cfg.Demo.File != "voice.wav" || cfg.Demo.FailAfter != 5*time.Second {
		t.Fatalf("unexpected demo config: %+v", cfg.Demo)
	}
	if cfg.LogLevel != LogDebug {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestResolveInvalidEnvironment(t *testing.T) {
	_, err := Resolve(nil, envMap(map[string]string{"CALLBAR_BAR_COUNT": "many"}))
	if err == nil || !strings.Contains(err.Error(), "CALLBAR_BAR_COUNT") {
		t.Fatalf("err = %v, want CALLBAR_BAR_COUNT error", err)
	}
}

func TestResolveMissingEnvFile(t *testing.T) {
	if _, err := Resolve(nil, noEnv); err != nil {
		t.Fatalf("missing default env file should be ignored: %v", err)
	}
	missing := filepath.Join(t.TempDir(), "nope.env")
	if _, err := Resolve([]string{"--env-file", missing}, noEnv); err == nil {
		t.Fatal("expected error for an explicit missing env file")
	}
}

func TestResolveRejectsArguments(t *testing.T) {
	if _, err := Resolve([]string{"extra"}, noEnv); err == nil {
		t.Fatal("expected error for positional argument")
	}
}

func TestEnvName(t *testing.T) {
	if got := EnvName("primary-color"); got != "CALLBAR_PRIMARY_COLOR" {
		t.Fatalf("EnvName = %q", got)
	}
}

func TestSizeBarWidth(t *testing.T) {
	tests := []struct {
		size Size
		want int
	}{
		{SizeSmall, 1},
		{SizeMedium, 2},
		{SizeLarge, 3},
	}
	for _, tt := range tests {
		if got := tt.size.BarWidth(); got != tt.want {
			t.Fatalf("%s.BarWidth() = %d, want %d", tt.size, got, tt.want)
		}
	}
}
