package main

import (
	"flag"
	"fmt"
	"time"
)

type cliFlags struct {
	configPath  string
	duration    time.Duration
	tick        time.Duration
	showVersion bool
}

func parseFlags(args []string) (cliFlags, error) {
	var flags cliFlags
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.StringVar(&flags.configPath, "config", "", "path to YAML configuration (defaults apply when omitted)")
	fs.DurationVar(&flags.duration, "duration", 10*time.Second, "how long to run the pipeline")
	fs.DurationVar(&flags.tick, "tick", 100*time.Millisecond, "source emission period")
	fs.BoolVar(&flags.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return flags, err
	}
	if flags.duration <= 0 {
		return flags, fmt.Errorf("duration must be positive, got %v", flags.duration)
	}
	if flags.tick <= 0 {
		return flags, fmt.Errorf("tick must be positive, got %v", flags.tick)
	}
	return flags, nil
}
