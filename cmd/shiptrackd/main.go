// Command shiptrackd runs the shiptrack API server with the default
// configuration lookup. It is equivalent to `shiptrack serve`.
package main

import (
	"context"
	"errors"
	"flag"
	"log"

	"shiptrack/internal/config"
	"shiptrack/internal/serverrun"
)

func main() {
	configPath := flag.String("config", "", "Configuration file path")
	logLevel := flag.String("log-level", "", "Override logging.level")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if err := serverrun.Run(context.Background(), cfg, serverrun.Options{LogLevel: *logLevel}); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("shiptrackd: %v", err)
	}
}
