// Command diaryctl runs the operational data tasks against the configured
// database.
//
//	diaryctl [-config file] migrate
//	diaryctl [-config file] init [-data dir]
//	diaryctl [-config file] populate-reviews [-seed n]
//	diaryctl [-config file] update-author-images
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"

	"github.com/sakif/literary-diary/internal/auth"
	"github.com/sakif/literary-diary/internal/config"
	"github.com/sakif/literary-diary/internal/logging"
	"github.com/sakif/literary-diary/internal/repository/sqlstore"
	"github.com/sakif/literary-diary/internal/seed"
)

const usage = `usage: diaryctl [-config file] <command> [flags]

commands:
  migrate               apply pending schema migrations
  init [-data dir]      migrate, then import writer.json and poets.json
  populate-reviews      create demo users and recent reviews [-seed n]
  update-author-images  apply known author image filename fixes
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "diaryctl:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("diaryctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", "", "path to a YAML config file")
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, stderr)

	cmd, cmdArgs := global.Arg(0), global.Args()[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	dataDir := cfg.SeedDir
	var rngSeed uint64

	switch cmd {
	case "migrate", "update-author-images":
	case "init":
		fs.StringVar(&dataDir, "data", cfg.SeedDir, "directory holding writer.json and poets.json")
	case "populate-reviews":
		fs.Uint64Var(&rngSeed, "seed", 0, "random seed for reproducible data (0 picks one)")
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err := fs.Parse(cmdArgs); err != nil {
		return err
	}

	// Open applies pending migrations, so every command starts from the
	// latest schema.
	store, err := sqlstore.Open(ctx, sqlstore.Options{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
	if err != nil {
		return err
	}
	defer store.Close()

	seeder := seed.New(store, auth.NewPasswordService(), logger)

	switch cmd {
	case "migrate":
		v, err := store.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "schema at version %d (%s)\n", v, store.Driver())

	case "init":
		res, err := seeder.ImportDir(ctx, dataDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "imported %d authors and %d works from %s\n", res.Authors, res.Works, dataDir)

	case "populate-reviews":
		if rngSeed == 0 {
			rngSeed = rand.Uint64()
		}
		logger.Debug("populating reviews", slog.Uint64("seed", rngSeed))
		res, err := seeder.PopulateReviews(ctx, rand.New(rand.NewPCG(rngSeed, rngSeed)))
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "created %d reviews across %d works (%d new demo users, password %q)\n",
			res.Reviews, res.Works, res.UsersCreated, seed.DemoPassword)

	case "update-author-images":
		updates, err := seeder.UpdateAuthorImages(ctx)
		if err != nil {
			return err
		}
		for _, u := range updates {
			fmt.Fprintf(stdout, "%s -> %s (%d rows)\n", u.NameEnglish, u.ImageURL, u.Rows)
		}
	}
	return nil
}
