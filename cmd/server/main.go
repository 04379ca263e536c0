package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/pmvault/internal/server"
	"github.com/dmitrijs2005/pmvault/internal/server/config"
)

func main() {
	ctx := context.Background()
	cfg := config.Load(os.Args[1:])

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		os.Exit(1)
	}
}
