package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/izzymg/rotcore/internal/configpaths"

	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// ConfigCommand groups config-related subcommands.
type ConfigCommand struct {
	Init ConfigInit `cmd:"" help:"Generate a configuration template"`
}

// ConfigInit scaffolds a configuration file holding every flag of a command
// at its default value.
type ConfigInit struct {
	Command string `arg:"" name:"command" help:"Command to generate config for" enum:"daemon,send"`
	Format  string `help:"Output format" enum:"json,yaml,yml,toml" default:"json"`
	Output  string `help:"Destination file path (defaults to <command>.<format> in the current directory)"`
	Force   bool   `help:"Overwrite if the file already exists"`
	Global  bool   `help:"Write to the user config directory when no output is given"`
}

// templateCommands lists the commands whose flags can be scaffolded.
var templateCommands = map[string]reflect.Type{
	"daemon": reflect.TypeOf(Daemon{}),
	"send":   reflect.TypeOf(Send{}),
}

var templateEncoders = map[string]func(any) ([]byte, error){
	"json": func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") },
	"yaml": yaml.Marshal,
	"toml": toml.Marshal,
}

// Run is called by Kong when config init is executed.
func (c *ConfigInit) Run(logger *slog.Logger) error {
	format := strings.ToLower(c.Format)
	if format == "yml" {
		format = "yaml"
	}
	encode, ok := templateEncoders[format]
	if !ok {
		return fmt.Errorf("unsupported format: %s", c.Format)
	}
	t, ok := templateCommands[c.Command]
	if !ok {
		return fmt.Errorf("unknown command %q; expected daemon or send", c.Command)
	}

	dest, err := c.destination(format)
	if err != nil {
		return err
	}
	if !c.Force {
		if _, err := os.Stat(dest); err == nil {
			return errors.New("destination exists; use --force to overwrite")
		}
	}

	data, err := encode(flagDefaults(t))
	if err != nil {
		return fmt.Errorf("encode %s template: %w", format, err)
	}
	if err := configpaths.EnsureDir(dest); err != nil {
		return err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return err
	}
	logger.Info("Wrote configuration template", "command", c.Command, "path", dest)
	return nil
}

func (c *ConfigInit) destination(format string) (string, error) {
	switch {
	case c.Output != "":
		return c.Output, nil
	case c.Global:
		return configpaths.DefaultNamedConfigPath(c.Command, format)
	default:
		return c.Command + "." + format, nil
	}
}

// flagDefaults maps each flag of a command struct to its default. Positional
// arguments and fields hidden from kong are left out, since config files only
// resolve flags.
func flagDefaults(t reflect.Type) map[string]any {
	out := map[string]any{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Tag.Get("kong") == "-" {
			continue
		}
		if _, ok := f.Tag.Lookup("arg"); ok {
			continue
		}
		if v, ok := flagDefault(f.Type, f.Tag.Get("default")); ok {
			out[lowerCamel(f.Name)] = v
		}
	}
	return out
}

// flagDefault converts a kong default tag into a value of the field's kind.
// Durations stay strings so the template reads like the command line.
func flagDefault(t reflect.Type, def string) (any, bool) {
	if t == reflect.TypeOf(time.Duration(0)) {
		if def == "" {
			def = "0s"
		}
		return def, true
	}
	switch t.Kind() {
	case reflect.String:
		return def, true
	case reflect.Bool:
		b, _ := strconv.ParseBool(def)
		return b, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, _ := strconv.ParseInt(def, 10, 64)
		return n, true
	case reflect.Float32, reflect.Float64:
		f, _ := strconv.ParseFloat(def, 64)
		return f, true
	default:
		return nil, false
	}
}

func lowerCamel(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}
