package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/modicscan/syncengine/internal/app"
	"github.com/modicscan/syncengine/internal/buildinfo"
	"github.com/modicscan/syncengine/internal/config"
	"github.com/modicscan/syncengine/internal/syncer"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	switch command(os.Args[1:]) {
	case "signup":
		a.SignUpCommand(ctx)
	case "login":
		a.LoginCommand(ctx)
	case "status":
		a.StatusCommand(ctx)
	case "sync":
		a.SyncCommand(ctx, syncer.ScopeFull)
	case "run", "":
		a.Run(ctx)
	default:
		fmt.Println("usage: syncd [signup|login|status|sync|run] [flags]")
	}
}

// command returns the first non-flag argument, if any.
func command(args []string) string {
	for _, arg := range args {
		if len(arg) > 0 && arg[0] != '-' {
			return arg
		}
	}
	return ""
}
