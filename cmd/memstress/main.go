package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/tmcallister/memkit/gc"
	"github.com/tmcallister/memkit/logging"
	"github.com/tmcallister/memkit/mem"
)

// Set at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "TOML configuration file")
		showVersion = flag.Bool("version", false, "print version and exit")
		verbose     = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Usage = printUsage
	flag.Parse()

	if *showVersion {
		fmt.Printf("memstress %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built: %s\n", date)
		os.Exit(0)
	}

	cfg := DefaultWorkloadConfig()
	if *configPath != "" {
		loaded, err := LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.applyFlags()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logging.Init(logging.Options{
		Enabled: true,
		Writer:  zerolog.ConsoleWriter{Out: os.Stderr},
		Level:   level,
	})

	facade := mem.New(mem.Options{
		ArenaSize:    cfg.ArenaSize,
		ObjectBudget: cfg.ObjectBudget,
	})
	facade.SetStatsEnabled(true)
	mem.SetDefault(facade)

	collector := gc.Init(gc.Config{
		AutoEnabled:       true,
		BackgroundEnabled: true,
		TriggerThreshold:  cfg.GCTriggerThreshold,
		EscalateThreshold: cfg.GCEscalateThreshold,
		MinInterval:       time.Duration(cfg.GCMinInterval),
		MaxInterval:       time.Duration(cfg.GCMaxInterval),
	})

	result, err := RunWorkload(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: workload failed: %v\n", err)
		os.Exit(1)
	}

	collector.Force(gc.Full)
	collector.Wait()

	fmt.Println(result.Report())
	fmt.Println()
	fmt.Println(collector.Report())
	fmt.Println()
	fmt.Println(facade.Stats().Report())

	gc.Shutdown()
	if !facade.VerifyHeap() {
		fmt.Fprintln(os.Stderr, "Error: heap verification failed")
		os.Exit(1)
	}
	if err := facade.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `memstress - exercise the managed-object runtime under load

Usage:
  memstress [flags]

Flags:
`)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  memstress -duration 30s -workers 8
  memstress -config stress.toml -verbose
`)
}
