package main

import (
	"context"
	stdlog "log"
	"os"

	"inventoryservice/internal/app"
)

func main() {
	if err := run(); err != nil {
		stdlog.Printf("inventory-service stopped: %v", err)
		os.Exit(1)
	}
}

func run() error {
	application, err := app.NewApplication(context.Background())
	if err != nil {
		return err
	}
	defer application.Shutdown()

	// Blocks until a signal arrives or the consumer hits a fatal broker error.
	return application.Run()
}
