package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/lms-access-backend/config"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/auth/identity"
	"github.com/GoSim-25-26J-441/lms-access-backend/internal/logging"
)

func main() {
	cfg := config.LoadClient()
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	log := logging.NewWithWriter(os.Stderr, "development", level)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := commandLine{
		cfg: cfg,
		out: os.Stdout,
		log: log,
		toolkit: identity.NewToolkit(cfg.Firebase.APIKey,
			identity.WithIdentityURL(cfg.Firebase.IdentityURL),
			identity.WithLogger(log),
		),
	}
	if err := cli.run(ctx, os.Args); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		stop()
		os.Exit(1)
	}
}
