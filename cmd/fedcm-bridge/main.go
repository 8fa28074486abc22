package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/Liquid-Surf/fedcm-demo/internal"
	"github.com/Liquid-Surf/fedcm-demo/internal/config"
	"github.com/Liquid-Surf/fedcm-demo/internal/log"
	"github.com/joho/godotenv"
)

var BuildVersion = "dev"

func main() {
	conf := flag.String("config", "", "path to config file (required)")
	validate := flag.Bool("validate", false, "validate config file and exit")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println(BuildVersion)
		return
	}

	if *conf == "" {
		fmt.Fprintln(os.Stderr, "Error: -config flag is required")
		flag.Usage()
		os.Exit(1)
	}

	// optional: secrets referenced by the config via ${VAR}
	_ = godotenv.Load()

	cfg, err := config.Load(*conf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *validate {
		fmt.Printf("Validating: %s\nResult: PASS\n", *conf)
		return
	}

	logger := log.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting fedcm-bridge", "version", BuildVersion, "config", *conf)

	ctx := context.Background()
	bridge, err := internal.NewBridge(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build bridge", "error", err)
		os.Exit(1)
	}

	if err := bridge.Run(ctx); err != nil {
		logger.Error("bridge exited with error", "error", err)
		os.Exit(1)
	}
}
