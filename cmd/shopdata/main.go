// Command shopdata creates the shop schema, fills it with random data and
// runs the report queries against it.
//
//	shopdata [-config shop.yaml] [-env .env] [-driver sqlite] [-dsn shop.db] <command> [flags]
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	orm "github.com/medatechnology/simpleshop"
	"github.com/medatechnology/simpleshop/config"
	"github.com/medatechnology/simpleshop/shop"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "shopdata:", orm.FormatError(err))
		os.Exit(1)
	}
}

// app is what every command gets to work with
type app struct {
	cfg      *config.Config
	store    *shop.Store
	reporter *shop.Reporter
	logger   orm.Logger
	out      io.Writer
}

type command struct {
	summary string
	run     func(a *app, args []string) error
}

func usage(w io.Writer, global *flag.FlagSet) {
	fmt.Fprintln(w, "usage: shopdata [global flags] <command> [flags]")
	fmt.Fprintln(w, "\nglobal flags:")
	global.SetOutput(w)
	global.PrintDefaults()
	fmt.Fprintln(w, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-20s %s\n", name, commands[name].summary)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("shopdata", flag.ContinueOnError)
	global.SetOutput(stderr)
	configPath := global.String("config", "", "YAML config file")
	envFile := global.String("env", ".env", "dotenv file loaded before reading SHOP_* variables")
	driver := global.String("driver", "", "database driver: sqlite, postgres, pgx or rqlite")
	dsn := global.String("dsn", "", "database DSN, overrides config and environment")
	global.Usage = func() { usage(stderr, global) }
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return flag.ErrHelp
	}
	name := global.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		global.Usage()
		return fmt.Errorf("unknown command %q", name)
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *dsn != "" {
		cfg.Database.DSN = *dsn
		cfg.Database.Driver = ""
	}
	if *driver != "" {
		cfg.Database.Driver = *driver
	}
	if err = cfg.Validate(); err != nil {
		return err
	}

	logger, err := config.NewLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	reporter, err := shop.NewReporter(stdout, cfg.Locale)
	if err != nil {
		return err
	}
	db, err := config.OpenDatabase(cfg.Database)
	if err != nil {
		return err
	}
	store := shop.NewStore(db, shop.WithLogger(logger))
	defer store.Close()

	logger.Debug("database open",
		orm.String("driver", cfg.Database.Driver),
		orm.String("dialect", string(db.Dialect())),
		orm.String("command", name))

	return cmd.run(&app{
		cfg:      cfg,
		store:    store,
		reporter: reporter,
		logger:   logger,
		out:      stdout,
	}, global.Args()[1:])
}

// parseFlags parses set over args and rejects leftovers.
func parseFlags(set *flag.FlagSet, args []string) error {
	set.SetOutput(io.Discard)
	if err := set.Parse(args); err != nil {
		return err
	}
	if set.NArg() > 0 {
		return fmt.Errorf("%s: unexpected arguments %s", set.Name(), strings.Join(set.Args(), " "))
	}
	return nil
}
