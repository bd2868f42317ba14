package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lherron/quotesync/internal/cli"
)

func main() {
	addr := flag.String("addr", os.Getenv("QUOTESYNCD_ADDR"), "Listen address (default 127.0.0.1:7272)")
	unixPath := flag.String("unix", os.Getenv("QUOTESYNCD_UNIX"), "Listen on unix socket path")
	token := flag.String("token", os.Getenv("QUOTESYNCD_TOKEN"), "Shared token for local auth")
	dbPath := flag.String("db", "", "Database path override (defaults to config)")
	remoteURL := flag.String("remote", "", "Remote base URL override (defaults to config)")
	interval := flag.Duration("interval", 0, "Sync interval (defaults to config, 30s)")
	noInitial := flag.Bool("no-initial-sync", false, "Wait one interval before the first sync")
	logFile := flag.String("log-file", "", "Write logs to a rotated file instead of stderr")
	flag.Parse()

	opts := cli.DaemonOptions{
		Addr:          *addr,
		Unix:          *unixPath,
		Token:         *token,
		DBPath:        *dbPath,
		RemoteURL:     *remoteURL,
		Interval:      *interval,
		NoInitialSync: *noInitial,
		LogFile:       *logFile,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ServeDaemon(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
