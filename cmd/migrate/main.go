// migrate runs DB migrations from embedded SQL; use with go run ./cmd/migrate -direction up|down|version.
package main

import (
	"flag"
	"fmt"
	"os"

	"volunteer-platform/backend/internal/config"
	"volunteer-platform/backend/internal/db/migrate"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [-direction up|down|version]")
		flag.PrintDefaults()
	}
	directionFlag := flag.String("direction", "up", "Migration direction: up, down or version")
	flag.Parse()

	direction, err := migrate.ParseDirection(*directionFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	status, err := migrate.Run(cfg.DatabaseURL, direction)
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	fmt.Printf("schema version %d (dirty=%v)\n", status.Version, status.Dirty)
	if status.Dirty {
		os.Exit(1)
	}
}
