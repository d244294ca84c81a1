// Command gocredsync stores, loads, and deletes encrypted browser session
// data in a private GitHub Gist.
//
// Usage:
//
//	gocredsync store  [-config file] [-in file]     # payload from -in or stdin
//	gocredsync load   [-config file] [-out file]    # payload to -out or stdout
//	gocredsync delete [-config file]
//	gocredsync status [-config file]
//
// The GitHub token is read from the GITHUB_TOKEN environment variable. The
// encryption master key lives in the OS keyring and is generated on first
// use; set GOCREDSYNC_MASTER_KEY (base64, 32 bytes) to override it on
// headless machines. Pass -redis-addr to share the replay ledger between
// machines; without it a local SQLite ledger is used.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	goCredSync "github.com/MrEthical07/goCredSync"
	"github.com/redis/go-redis/v9"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	command := os.Args[1]
	flags := flag.NewFlagSet(command, flag.ExitOnError)
	var (
		configPath = flags.String("config", "", "path to YAML config file")
		inPath     = flags.String("in", "", "read payload from file instead of stdin")
		outPath    = flags.String("out", "", "write payload to file instead of stdout")
		stateDir   = flags.String("state-dir", "", "override the state directory")
		redisAddr  = flags.String("redis-addr", "", "redis address for a shared replay ledger")
		verbose    = flags.Bool("v", false, "emit audit events to stderr")
	)
	_ = flags.Parse(os.Args[2:])

	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		fatal("GITHUB_TOKEN is not set")
	}

	cfg := goCredSync.DefaultConfig()
	if *configPath != "" {
		loaded, err := goCredSync.LoadConfigFile(*configPath)
		if err != nil {
			fatal(err.Error())
		}
		cfg = loaded
	}

	builder := goCredSync.New().
		WithConfig(cfg).
		WithToken(token)

	if *stateDir != "" {
		builder = builder.WithStateDir(*stateDir)
	}
	if *redisAddr != "" {
		builder = builder.WithRedis(redis.NewClient(&redis.Options{Addr: *redisAddr}))
	}
	if *verbose {
		builder = builder.
			WithConfig(withAuditEnabled(cfg)).
			WithAuditSink(goCredSync.NewJSONWriterSink(os.Stderr))
	}

	store, err := builder.Build()
	if err != nil {
		fatal(err.Error())
	}
	defer store.Close()

	ctx := context.Background()

	switch command {
	case "store":
		runStore(ctx, store, *inPath)
	case "load":
		runLoad(ctx, store, *outPath)
	case "delete":
		runDelete(ctx, store)
	case "status":
		runStatus(ctx, store)
	default:
		usage()
		os.Exit(2)
	}
}

func runStore(ctx context.Context, store *goCredSync.Store, inPath string) {
	payload, err := readPayload(inPath)
	if err != nil {
		fatal(err.Error())
	}

	meta, err := store.Store(ctx, payload)
	if err != nil {
		fatal(err.Error())
	}
	fmt.Printf("stored session %s, expires %s\n", meta.SessionID, meta.ExpiresAt.Format("2006-01-02 15:04 MST"))
}

func runLoad(ctx context.Context, store *goCredSync.Store, outPath string) {
	payload, meta, err := store.Load(ctx)
	if err != nil {
		fatal(err.Error())
	}

	if outPath == "" {
		_, _ = os.Stdout.Write(payload)
		fmt.Fprintf(os.Stderr, "loaded session %s from device %s\n", meta.SessionID, meta.DeviceID)
		return
	}
	if err := os.WriteFile(outPath, payload, 0o600); err != nil {
		fatal(err.Error())
	}
	fmt.Printf("loaded session %s to %s\n", meta.SessionID, outPath)
}

func runDelete(ctx context.Context, store *goCredSync.Store) {
	if err := store.Delete(ctx); err != nil {
		fatal(err.Error())
	}
	fmt.Println("remote session deleted")
}

func runStatus(ctx context.Context, store *goCredSync.Store) {
	ok, err := store.Has(ctx)
	if err != nil {
		fatal(err.Error())
	}
	if ok {
		fmt.Println("remote session present")
		return
	}
	fmt.Println("no remote session")
}

func readPayload(inPath string) ([]byte, error) {
	if inPath != "" {
		return os.ReadFile(inPath)
	}
	return io.ReadAll(os.Stdin)
}

func withAuditEnabled(cfg goCredSync.Config) goCredSync.Config {
	cfg.Audit.Enabled = true
	if cfg.Audit.BufferSize <= 0 {
		cfg.Audit.BufferSize = 64
	}
	return cfg
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: gocredsync <store|load|delete|status> [flags]")
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, "gocredsync:", msg)
	os.Exit(1)
}
