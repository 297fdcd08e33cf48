package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/olivier-w/callbar/internal/visualizer"
	cli "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by [Resolve].
const EnvPrefix = "CALLBAR_"

// Attributes lists the widget attribute names accepted by [FromAttributes].
var Attributes = []string{
	"assistant-id",
	"base-url",
	"participant-name",
	"position",
	"theme",
	"primary-color",
	"size",
	"auto-connect",
}

type field struct {
	name  string
	usage string
	set   func(c *WidgetConfig, v string) error
}

// fields are the keys shared by the environment and the command line, in
// usage order. Attribute keys come first.
var fields = []field{
	{"assistant-id", "assistant to call", func(c *WidgetConfig, v string) error {
		c.AssistantID = strings.TrimSpace(v)
		return nil
	}},
	{"base-url", "session API base URL", func(c *WidgetConfig, v string) error {
		c.BaseURL = v
		return nil
	}},
	{"participant-name", "name shown to the assistant", func(c *WidgetConfig, v string) error {
		c.ParticipantName = v
		return nil
	}},
	{"position", "panel position: bottom-right, bottom-left, top-right, top-left", func(c *WidgetConfig, v string) error {
		c.Position = Position(v)
		return nil
	}},
	{"theme", "colour theme: light, dark, custom", func(c *WidgetConfig, v string) error {
		c.Theme = Theme(v)
		return nil
	}},
	{"primary-color", "accent colour as #RRGGBB", func(c *WidgetConfig, v string) error {
		c.PrimaryColor = v
		return nil
	}},
	{"size", "widget size: small, medium, large", func(c *WidgetConfig, v string) error {
		c.Size = Size(v)
		return nil
	}},
	{"auto-connect", "start the call on launch", func(c *WidgetConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.AutoConnect = b
		return nil
	}},
	{"bar-count", "number of visualizer bars", func(c *WidgetConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		c.BarCount = n
		return nil
	}},
	{"log-level", "log level: debug, info, warn, error", func(c *WidgetConfig, v string) error {
		c.LogLevel = LogLevel(strings.ToLower(v))
		return nil
	}},
	{"log-file", "file receiving the log", func(c *WidgetConfig, v string) error {
		c.LogFile = v
		return nil
	}},
	{"metrics-addr", "serve Prometheus metrics on this address", func(c *WidgetConfig, v string) error {
		c.MetricsAddr = v
		return nil
	}},
	{"demo", "use the offline demo agent", func(c *WidgetConfig, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		c.Demo.Enabled = b
		return nil
	}},
	{"demo-file", "audio file voiced by the demo agent (implies --demo)", func(c *WidgetConfig, v string) error {
		c.Demo.File = v
		if v != "" {
			c.Demo.Enabled = true
		}
		return nil
	}},
	{"demo-fail-after", "drop the demo connection after this long", func(c *WidgetConfig, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		c.Demo.FailAfter = d
		return nil
	}},
}

func lookupField(name string) (field, bool) {
	for _, f := range fields {
		if f.name == name {
			return f, true
		}
	}
	return field{}, false
}

// Set assigns the value of the key name, as spelled on the command line.
func (c *WidgetConfig) Set(name, value string) error {
	f, ok := lookupField(name)
	if !ok {
		return fmt.Errorf("config: unknown key %q", name)
	}
	if err := f.set(c, value); err != nil {
		return fmt.Errorf("config: %s: %w", name, err)
	}
	return nil
}

// EnvName returns the environment variable read for the key name.
func EnvName(name string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// FromAttributes builds a configuration from widget attributes. Empty
// attributes keep their defaults and auto-connect is enabled only by the
// value "true".
func FromAttributes(attrs map[string]string) (*WidgetConfig, error) {
	cfg := Defaults()
	var errs []error
	for name, v := range attrs {
		if !isAttribute(name) {
			errs = append(errs, fmt.Errorf("config: unknown attribute %q", name))
			continue
		}
		if name == "auto-connect" {
			cfg.AutoConnect = v == "true"
			continue
		}
		if v == "" {
			continue
		}
		if err := cfg.Set(name, v); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func isAttribute(name string) bool {
	for _, a := range Attributes {
		if a == name {
			return true
		}
	}
	return false
}

// Load reads the YAML configuration file at path over the defaults and
// returns a validated [WidgetConfig].
func Load(path string) (*WidgetConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result.
func LoadFromReader(r io.Reader) (*WidgetConfig, error) {
	cfg := Defaults()
	if err := decode(r, cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *WidgetConfig) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// Resolve builds the configuration from, lowest precedence first, the
// defaults, the YAML file named by --config, the dotenv file named by
// --env-file, the environment and the remaining flags. lookupEnv is usually
// [os.LookupEnv]; real environment variables win over the dotenv file.
func Resolve(args []string, lookupEnv func(string) (string, bool)) (*WidgetConfig, error) {
	fs := cli.NewFlagSet("callbar", cli.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "YAML config file")
	envFile := fs.String("env-file", ".env", "dotenv file read before the environment")
	registerFlags(fs, Defaults())

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("config: unexpected argument %q", fs.Arg(0))
	}

	cfg := Defaults()
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", *configPath, err)
		}
		err = decode(f, cfg)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", *configPath, err)
		}
	}

	dotenv, err := godotenv.Read(*envFile)
	if err != nil {
		if fs.Changed("env-file") || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: read %q: %w", *envFile, err)
		}
		dotenv = nil
	}
	var errs []error
	for _, f := range fields {
		key := EnvName(f.name)
		v, ok := lookupEnv(key)
		if !ok {
			v, ok = dotenv[key]
		}
		if !ok || v == "" {
			continue
		}
		if err := cfg.Set(f.name, v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	fs.Visit(func(fl *cli.Flag) {
		if _, ok := lookupField(fl.Name); !ok {
			return
		}
		if err := cfg.Set(fl.Name, fl.Value.String()); err != nil {
			errs = append(errs, err)
		}
	})
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func registerFlags(fs *cli.FlagSet, def *WidgetConfig) {
	for _, f := range fields {
		switch f.name {
		case "auto-connect":
			fs.Bool(f.name, def.AutoConnect, f.usage)
		case "demo":
			fs.Bool(f.name, def.Demo.Enabled, f.usage)
		case "bar-count":
			fs.Int(f.name, def.BarCount, f.usage)
		case "demo-fail-after":
			fs.Duration(f.name, def.Demo.FailAfter, f.usage)
		default:
			fs.String(f.name, flagDefault(def, f.name), f.usage)
		}
	}
}

func flagDefault(def *WidgetConfig, name string) string {
	switch name {
	case "base-url":
		return def.BaseURL
	case "participant-name":
		return def.ParticipantName
	case "position":
		return string(def.Position)
	case "theme":
		return string(def.Theme)
	case "primary-color":
		return def.PrimaryColor
	case "size":
		return string(def.Size)
	case "log-level":
		return string(def.LogLevel)
	case "log-file":
		return def.LogFile
	}
	return ""
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *WidgetConfig) error {
	var errs []error

	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("base_url %q is not an http(s) URL", cfg.BaseURL))
		}
	}
	if !cfg.Position.IsValid() {
		errs = append(errs, fmt.Errorf("position %q is invalid; valid values: bottom-right, bottom-left, top-right, top-left", cfg.Position))
	}
	if !cfg.Theme.IsValid() {
		errs = append(errs, fmt.Errorf("theme %q is invalid; valid values: light, dark, custom", cfg.Theme))
	}
	if cfg.PrimaryColor != "" && !visualizer.ValidHexColor(cfg.PrimaryColor) {
		errs = append(errs, fmt.Errorf("primary_color %q is not a #RRGGBB colour", cfg.PrimaryColor))
	}
	if cfg.Theme == ThemeCustom && cfg.PrimaryColor == "" {
		errs = append(errs, errors.New("theme custom requires primary_color"))
	}
	if !cfg.Size.IsValid() {
		errs = append(errs, fmt.Errorf("size %q is invalid; valid values: small, medium, large", cfg.Size))
	}
	if cfg.BarCount < 1 || cfg.BarCount > maxBarCount {
		errs = append(errs, fmt.Errorf("bar_count %d is out of range [1, %d]", cfg.BarCount, maxBarCount))
	}
	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Demo.FailAfter < 0 {
		errs = append(errs, fmt.Errorf("demo.fail_after %s is negative", cfg.Demo.FailAfter))
	}

	return errors.Join(errs...)
}
