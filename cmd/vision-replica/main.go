// Vision Replica - hold to talk, snap a photo, hear what the model sees.
//
// Runs the dashboard by default; -record runs a single headless cycle.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/teslashibe/go-vision-replica/internal/config"
	vlog "github.com/teslashibe/go-vision-replica/internal/log"
	"github.com/teslashibe/go-vision-replica/pkg/app"
)

func main() {
	cfg, record := parseFlags()

	vlog.Init(cfg.Settings.LogLevel)

	a, err := app.New(cfg, vlog.L())
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		log.Fatalf("❌ Initialization failed: %v", err)
	}
	defer a.Shutdown()

	if record > 0 {
		out, err := a.Once(ctx, record)
		if err != nil {
			log.Printf("❌ Cycle failed: %v", err)
			return
		}
		fmt.Println("╭───────────────────────────────────────────")
		fmt.Printf("│ 👁️  %s\n", out.Text)
		fmt.Println("╰───────────────────────────────────────────")
		return
	}

	if err := a.Run(ctx); err != nil {
		log.Printf("❌ Runtime error: %v", err)
	}
}

// parseFlags loads .env, the config file and command line overrides.
func parseFlags() (app.Config, time.Duration) {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "YAML config file")
	endpoint := flag.String("endpoint", "", "Upload URL (overrides VISION_ENDPOINT)")
	port := flag.Int("port", 0, "Dashboard port (overrides WEB_PORT)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	mock := flag.Bool("mock", false, "Use in-memory microphone, speaker and camera")
	quiet := flag.Bool("quiet", false, "Do not speak the waiting phrase")
	record := flag.Duration("record", 0, "Record for this long, run one cycle, play the reply and exit")
	flag.Parse()

	settings, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	if *endpoint != "" {
		settings.Endpoint = *endpoint
	}
	if *port != 0 {
		settings.Web.Port = *port
	}
	if *debug {
		settings.LogLevel = "debug"
	}
	settings.Status.Quiet = settings.Status.Quiet || *quiet

	return app.Config{
		Settings: settings,
		Mock:     *mock,
		Headless: *record > 0,
	}, *record
}
