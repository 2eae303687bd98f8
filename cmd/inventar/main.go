package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/erazemk/inventar/internal/config"
	"github.com/erazemk/inventar/internal/logging"
)

const usage = `Usage: inventar <command> [flags]

Commands:
  init     create the database and the admin account
  serve    run the HTTP API (creates the database on first run)
  import   load a JSON export into the database
  export   write the database as a JSON export

Common flags:
  -c, -config <path>      YAML config file (default: none, INVENTAR_* env and defaults)
  -d, -db <path>          SQLite database path (default: inventar.sqlite3)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show help for a command

Run 'inventar <command> -h' for command specific flags.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "init":
		err = cmdInit(args)
	case "serve":
		err = cmdServe(args)
	case "import":
		err = cmdImport(args)
	case "export":
		err = cmdExport(args)
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", cmd, usage)
		os.Exit(1)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags are accepted by every command. Flags that were set on the
// command line override the config file and environment.
type commonFlags struct {
	fs         *flag.FlagSet
	configPath string
	keys       map[string]string // flag name to config key
	values     map[string]any
}

func newFlagSet(name, help string) *commonFlags {
	c := &commonFlags{
		fs:     flag.NewFlagSet(name, flag.ContinueOnError),
		keys:   map[string]string{},
		values: map[string]any{},
	}
	c.fs.Usage = func() { fmt.Fprint(os.Stdout, help) }

	c.fs.StringVar(&c.configPath, "config", "", "")
	c.fs.StringVar(&c.configPath, "c", "", "")
	c.stringKey("db", "d", "db")
	c.stringKey("log", "l", "log.file")
	return c
}

// stringKey registers a long and short flag bound to a config key.
func (c *commonFlags) stringKey(long, short, key string) {
	v := new(string)
	c.fs.StringVar(v, long, "", "")
	if short != "" {
		c.fs.StringVar(v, short, "", "")
		c.keys[short] = key
	}
	c.keys[long] = key
	c.values[key] = v
}

func (c *commonFlags) parse(args []string) error {
	return c.fs.Parse(args)
}

// load resolves the configuration and builds the logger.
func (c *commonFlags) load() (*config.Config, zerolog.Logger, func(), error) {
	overrides := map[string]any{}
	c.fs.Visit(func(f *flag.Flag) {
		if key, ok := c.keys[f.Name]; ok {
			overrides[key] = *(c.values[key].(*string))
		}
	})

	cfg, err := config.Load(c.configPath, overrides)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}

	log, closeLog, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		File:    cfg.Log.File,
		Console: cfg.Log.Console,
	})
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	return cfg, log, closeLog, nil
}
