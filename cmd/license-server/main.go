// license-server is the backend for the IDME PBD Helper extension: it
// issues license keys on purchase, validates them with device binding,
// and serves the admin renewal and reporting surface.
package main

import (
	"context"
	"fmt"
	"os"

	"idmeapi/internal/app"
)

func main() {
	ctx := context.Background()

	application, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		application.Logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
