// Package flagx holds pflag helpers for binaries whose command line is shared
// by several components, each parsing only the flags it owns.
package flagx

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// NewLenientSet returns a FlagSet that skips flags it does not define
// (together with their values) instead of failing.
func NewLenientSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.SetOutput(io.Discard)
	return fs
}

// ConfigPath extracts the value of --config (-c) from args.
// It returns "" when the flag is absent.
func ConfigPath(args []string) (string, error) {
	fs := NewLenientSet("config")
	path := fs.StringP("config", "c", "", "path to a JSON or YAML config file")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	return *path, nil
}

// Explicit holds the command-line text of every flag the user set.
type Explicit map[string]string

// Snapshot records the flags set on the command line. Take it before
// overlaying a config file: the file writes into the same destinations the
// flags are bound to.
func Snapshot(fs *pflag.FlagSet) Explicit {
	e := Explicit{}
	fs.Visit(func(f *pflag.Flag) {
		e[f.Name] = f.Value.String()
	})
	return e
}

// Restore sets the recorded flags again so they keep precedence over
// whatever was written in between.
func (e Explicit) Restore(fs *pflag.FlagSet) error {
	for name, value := range e {
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}
	return nil
}
