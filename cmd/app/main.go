package main

import (
	"context"
	"flag"
	"log"
	"os"

	"PriceCast/internal/di"
	"PriceCast/internal/domain"
	"PriceCast/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	mode := flag.String("mode", "run", "run: one forecast and exit; serve: HTTP API and scheduler")
	train := flag.Bool("train", true, "train and save the model instead of loading it")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	// -train wins over the config file only when given explicitly
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "train" {
			cfg.Forecast.ShouldTrain = *train
		}
	})

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	switch *mode {
	case "run":
		if _, err := app.RunOnce(ctx); err != nil {
			stage, _ := domain.StageOf(err)
			log.Printf("forecast failed at stage %q: %v", stage, err)
			app.Close()
			os.Exit(1)
		}
	case "serve":
		log.Printf("env=%s serving on :%d", cfg.Environment, cfg.Server.Port)
		if err := app.Serve(ctx); err != nil {
			log.Printf("app error: %v", err)
			app.Close()
			os.Exit(1)
		}
	default:
		log.Printf("unknown mode %q", *mode)
		app.Close()
		os.Exit(2)
	}
}
