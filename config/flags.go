package config

import (
	"flag"
	"fmt"
)

// Flags command line flags.
type Flags struct {
	ConfigPath string
	Setup      bool
	History    int
}

// ParseFlags parses args (without the program name).
func ParseFlags(args []string) (Flags, error) {
	var f Flags

	fs := flag.NewFlagSet("coinrank", flag.ContinueOnError)
	fs.StringVar(&f.ConfigPath, "config", "config.yaml", "path to yaml config")
	fs.BoolVar(&f.Setup, "setup", false, "run the interactive configuration wizard")
	fs.IntVar(&f.History, "history", 0, "print the last N recorded decisions and exit")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	if f.History < 0 {
		return Flags{}, fmt.Errorf("invalid --history provided, --history=%d", f.History)
	}
	if f.ConfigPath == "" {
		return Flags{}, fmt.Errorf("--config must not be empty")
	}

	return f, nil
}
