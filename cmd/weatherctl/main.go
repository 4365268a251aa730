// Command weatherctl drives the dashboard service from the terminal:
// fetching weather, managing favorites and alert rules, and reading
// alert history.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"weatherdash/internal/app"
)

const usage = `usage: weatherctl [-config path] [-json] <command> [args]

commands:
  fetch <city>                     refresh current weather and forecast
  places <query>                   look up matching places
  favorites list|add|remove|clear  manage favorite cities
  rules list|add|remove            manage alert rules
  history [-city c] [-limit n]     show stored observations
  alerts [-city c] [-limit n]      show fired alerts
  purge [-days n]                  delete alerts older than n days
  moon [-date YYYY-MM-DD]          show the moon phase
  suggest [-city c]                suggest alert rules from history
`

func main() {
	log.SetFlags(0)

	configPath := flag.String("config", "./config.yaml", "path to the YAML config file")
	asJSON := flag.Bool("json", false, "print JSON instead of text")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	c := &cli{svc: a.Service, out: os.Stdout, asJSON: *asJSON}
	runErr := c.run(ctx, flag.Args())
	a.Close()

	if runErr != nil {
		log.Fatalf("Error: %v", runErr)
	}
}
