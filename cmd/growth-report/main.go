package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"growth-analytics/internal/config"
	"growth-analytics/internal/pipeline"
)

func main() {
	var exitCode int
	defer func() {
		os.Exit(exitCode)
	}()

	configPath := flag.String("config", "", "path to YAML config (defaults apply when empty)")
	users := flag.Int("users", 0, "override simulated population size")
	seed := flag.Int64("seed", 0, "override simulation seed (0 keeps the configured seed)")
	outDir := flag.String("out", "", "override output directory")
	warehouseDriver := flag.String("warehouse", "", "load results into a warehouse (postgres, mysql, or mongo)")
	timeout := flag.Duration("timeout", 10*time.Minute, "warehouse load timeout")
	quiet := flag.Bool("quiet", false, "suppress progress logging")

	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadConfig(*configPath)
		if err != nil {
			log.Printf("Failed to load config: %v", err)
			exitCode = 1
			return
		}
	} else {
		cfg = config.Default()
	}

	if *users > 0 {
		cfg.Simulation.Population = *users
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if *warehouseDriver != "" {
		cfg.Warehouse.Driver = *warehouseDriver
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("Invalid config: %v", err)
		exitCode = 1
		return
	}

	var logger *log.Logger
	if !*quiet {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	p := pipeline.New(cfg, logger)

	artifacts, err := p.Run()
	if err != nil {
		log.Printf("Pipeline failed: %v", err)
		exitCode = 1
		return
	}

	if err := p.Export(artifacts); err != nil {
		log.Printf("Export failed: %v", err)
		exitCode = 1
		return
	}

	if cfg.Warehouse.Driver != "" {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()
		if err := p.LoadWarehouse(ctx, artifacts); err != nil {
			log.Printf("Warehouse load failed: %v", err)
			exitCode = 1
			return
		}
	}

	report := pipeline.BuildReport(artifacts, cfg)
	jsonOutput, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Printf("Failed to marshal report: %v", err)
		exitCode = 1
		return
	}
	fmt.Println(string(jsonOutput))
}
