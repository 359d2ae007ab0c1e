package main

import (
	"context"
	"log"
	"os"

	"github.com/authvault/authvault/internal/admincli"
	"github.com/authvault/authvault/internal/buildinfo"
	"github.com/authvault/authvault/internal/flagx"
	"github.com/authvault/authvault/internal/server/config"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := admincli.NewApp(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	args := flagx.PositionalArgs(os.Args[1:], config.ServerFlags)

	err = app.Run(ctx, args)
	app.Close()
	if err != nil {
		log.Fatalf("%v", err)
	}
}
