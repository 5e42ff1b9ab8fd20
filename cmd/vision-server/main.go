// Vision Server - reference backend for the capture client.
//
// POST /process takes the audio and image parts and replies with the
// answer text and base64 MP3 speech.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	vlog "github.com/teslashibe/go-vision-replica/internal/log"
	"github.com/teslashibe/go-vision-replica/pkg/backend"
)

var (
	port   = flag.Int("port", 5000, "HTTP server port (overrides PORT env)")
	debug  = flag.Bool("debug", false, "Enable debug logging and access log")
	model  = flag.String("model", backend.DefaultVisionModel, "Vision model")
	voice  = flag.String("voice", backend.DefaultVoice, "Speech voice")
	tokens = flag.Int("max-tokens", backend.DefaultMaxTokens, "Reply token cap")
)

func main() {
	_ = godotenv.Load()
	flag.Parse()

	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "port" {
			explicit = true
		}
	})
	*port = resolvePort(*port, explicit, os.Getenv("PORT"))

	level := "info"
	if *debug {
		level = "debug"
	}
	vlog.Init(level)

	fmt.Println()
	fmt.Println("🧠 Vision Server")
	fmt.Printf("   model=%s voice=%s port=%d\n", *model, *voice, *port)
	fmt.Println()

	inf, err := backend.NewOpenAI(
		backend.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
		backend.WithVisionModel(*model),
		backend.WithVoice(*voice),
		backend.WithMaxTokens(*tokens),
		backend.WithLogger(vlog.L()),
	)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())

	srv := backend.NewServer(backend.ServerConfig{
		Addr:      fmt.Sprintf(":%d", *port),
		Registry:  reg,
		AccessLog: *debug,
		Logger:    vlog.L(),
	}, inf)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}
	fmt.Println("\n👋 Goodbye!")
}

// resolvePort prefers an explicit -port, then PORT, then the flag default.
func resolvePort(flagPort int, explicit bool, env string) int {
	if explicit || env == "" {
		return flagPort
	}
	if p, err := strconv.Atoi(env); err == nil {
		return p
	}
	return flagPort
}
