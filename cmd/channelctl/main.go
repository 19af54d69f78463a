// Command channelctl manages registered channels against a running channeldesk server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/voyagen/channeldesk/internal/apiclient"
	"github.com/voyagen/channeldesk/internal/config"
	"github.com/voyagen/channeldesk/internal/logger"
)

const usage = `usage: channelctl <command> [flags]

commands:
  list      [-language L] [-type T] [-search TEXT]
  add       -url URL -languages L1,L2 [-type T] [-name N] [-inactive] [-videos=false] [-shorts] [-full-movies]
  edit      -id ID [-refresh URL] [-name N] [-type T] [-languages L1,L2] [-active] [-videos] [-shorts] [-full-movies]
  sync      -id ID
  delete    -id ID
  settings  get KEY | put KEY JSON
`

func main() {
	cfg := config.LoadClient()
	log := logger.New(cfg.LogLevel)
	client := apiclient.New(cfg.APIURL, cfg.Timeout, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := newApp(client, os.Stdin, os.Stdout, log)
	if err := app.run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
