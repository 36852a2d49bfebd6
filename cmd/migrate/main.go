// migrate applies the embedded schema migrations; run with go run ./cmd/migrate [-direction up|down] [-steps n].
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"tenant-messaging-api/backend/internal/config"
	"tenant-messaging-api/backend/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	steps := flag.Int("steps", 0, "Number of migrations to apply; 0 applies all pending")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	version, err := migrate.Run(cfg.DatabaseURL, migrate.Options{Direction: *direction, Steps: *steps})
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		fmt.Printf("schema already at version %d\n", version)
	case err != nil:
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	default:
		fmt.Printf("schema at version %d\n", version)
	}
}
