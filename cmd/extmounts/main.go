// Command extmounts manages external storage mount configurations.
//
// Usage:
//
//	extmounts [global flags] <command> [command flags] [args]
//
// Commands:
//
//	init     write a sample configuration file
//	list     list the mounts of a scope
//	get      show one mount
//	add      create a mount
//	update   change a mount
//	remove   delete a mount
//	watch    periodically check every mount and serve metrics
//
// Global flags select the configuration file, the scope (--user for the
// personal mounts of a user, the global scope otherwise) and the output
// format.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/extmounts/internal/logger"
	"github.com/marmos91/extmounts/pkg/config"
	"github.com/marmos91/extmounts/pkg/mount"
)

// errUsage is returned after usage has been printed.
var errUsage = errors.New("invalid usage")

// globalOptions are the flags accepted before the command name.
type globalOptions struct {
	configPath  string
	user        string
	output      string
	logLevel    string
	showSecrets bool
}

// command runs one subcommand.
type command struct {
	name    string
	summary string
	run     func(ctx context.Context, env *environment, args []string) error
}

var commands = []command{
	{name: "init", summary: "write a sample configuration file", run: cmdInit},
	{name: "list", summary: "list the mounts of a scope", run: cmdList},
	{name: "get", summary: "show one mount: get <id>", run: cmdGet},
	{name: "add", summary: "create a mount", run: cmdAdd},
	{name: "update", summary: "change a mount: update <id>", run: cmdUpdate},
	{name: "remove", summary: "delete a mount: remove <id>", run: cmdRemove},
	{name: "watch", summary: "periodically check every mount and serve metrics", run: cmdWatch},
}

// environment is shared by all commands.
type environment struct {
	opts   globalOptions
	stdout io.Writer
	stderr io.Writer

	cfg     *config.Config
	runtime *config.Runtime
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	logger.Close()

	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// run parses args and executes the selected command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	env := &environment{stdout: stdout, stderr: stderr}

	fs := flag.NewFlagSet("extmounts", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&env.opts.configPath, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/extmounts/config.yaml)")
	fs.StringVar(&env.opts.user, "user", "", "Manage the personal mounts of this user instead of the global mounts")
	fs.StringVar(&env.opts.output, "output", "table", "Output format: table, json or yaml")
	fs.StringVar(&env.opts.logLevel, "log-level", "", "Override the configured log level (DEBUG, INFO, WARN, ERROR)")
	fs.BoolVar(&env.opts.showSecrets, "show-secrets", false, "Print secret backend options instead of masking them")
	fs.Usage = func() { printUsage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return errUsage
	}

	if _, err := newPrinter(env.opts.output, nil); err != nil {
		return err
	}

	if fs.NArg() == 0 {
		printUsage(fs)
		return errUsage
	}

	name := fs.Arg(0)
	for _, cmd := range commands {
		if cmd.name == name {
			defer env.close()
			return cmd.run(ctx, env, fs.Args()[1:])
		}
	}

	fmt.Fprintf(stderr, "unknown command %q\n\n", name)
	printUsage(fs)
	return errUsage
}

func printUsage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintf(out, "Usage: extmounts [flags] <command> [args]\n\nCommands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(out, "  %-8s %s\n", cmd.name, cmd.summary)
	}
	fmt.Fprintf(out, "\nFlags:\n")
	fs.PrintDefaults()
}

// load reads the configuration and sets up logging.
func (env *environment) load() error {
	if env.cfg != nil {
		return nil
	}

	cfg, err := config.Load(env.opts.configPath)
	if err != nil {
		return err
	}

	level := cfg.Logging.Level
	if env.opts.logLevel != "" {
		level = env.opts.logLevel
	}
	if err := logger.Configure(level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}

	env.cfg = cfg
	return nil
}

// service returns the mount service of the selected scope.
func (env *environment) service(ctx context.Context) (*mount.Service, error) {
	if err := env.load(); err != nil {
		return nil, err
	}

	if env.runtime == nil {
		rt, err := config.InitializeRuntime(ctx, env.cfg)
		if err != nil {
			return nil, err
		}
		env.runtime = rt
	}

	if env.opts.user != "" {
		return env.runtime.UserService(env.opts.user)
	}
	return env.runtime.GlobalService()
}

// printer returns the output printer for the selected format.
func (env *environment) printer() *printer {
	var secretFields []string
	if !env.opts.showSecrets && env.cfg != nil {
		secretFields = env.cfg.Secrets.Fields
	}
	p, _ := newPrinter(env.opts.output, secretFields)
	p.out = env.stdout
	p.owner = env.opts.user
	return p
}

func (env *environment) close() {
	if env.runtime != nil {
		if err := env.runtime.Close(); err != nil {
			logger.Warn("Failed to close runtime: %v", err)
		}
	}
}
