package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/marmos91/extmounts/pkg/config"
	"github.com/marmos91/extmounts/pkg/mount"
	"gopkg.in/yaml.v3"
)

func newFlagSet(env *environment, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.stderr)
	return fs
}

// parseID parses the single positional id argument.
func parseID(fs *flag.FlagSet) (int, error) {
	if fs.NArg() != 1 {
		return 0, fmt.Errorf("%s: expected exactly one mount id", fs.Name())
	}
	id, err := strconv.Atoi(fs.Arg(0))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s: invalid mount id %q", fs.Name(), fs.Arg(0))
	}
	return id, nil
}

func cmdInit(_ context.Context, env *environment, args []string) error {
	fs := newFlagSet(env, "init")
	force := fs.Bool("force", false, "Overwrite an existing config file")
	path := fs.String("path", "", "Write the config file here instead of the default location")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	target := *path
	if target == "" {
		target = env.opts.configPath
	}

	if target == "" {
		written, err := config.InitConfig(*force)
		if err != nil {
			return err
		}
		target = written
	} else if err := config.InitConfigToPath(target, *force); err != nil {
		return err
	}

	fmt.Fprintf(env.stdout, "Configuration written to %s\n", target)
	return nil
}

func cmdList(ctx context.Context, env *environment, args []string) error {
	fs := newFlagSet(env, "list")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	svc, err := env.service(ctx)
	if err != nil {
		return err
	}

	configs, err := svc.List(ctx)
	if err != nil {
		return err
	}
	return env.printer().printMounts(configs)
}

func cmdGet(ctx context.Context, env *environment, args []string) error {
	fs := newFlagSet(env, "get")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	id, err := parseID(fs)
	if err != nil {
		return err
	}

	svc, err := env.service(ctx)
	if err != nil {
		return err
	}

	cfg, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	return env.printer().printMount(cfg)
}

func cmdAdd(ctx context.Context, env *environment, args []string) error {
	fs := newFlagSet(env, "add")
	mf := registerMountFlags(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("add: unexpected arguments %v", fs.Args())
	}

	cfg := &mount.MountConfig{}
	if err := mf.apply(fs, cfg); err != nil {
		return err
	}

	svc, err := env.service(ctx)
	if err != nil {
		return err
	}

	added, err := svc.Add(ctx, cfg)
	if err != nil {
		return err
	}
	return env.printer().printMount(added)
}

// cmdUpdate applies the given flags on top of the stored config and writes
// the result back as a whole.
func cmdUpdate(ctx context.Context, env *environment, args []string) error {
	fs := newFlagSet(env, "update")
	mf := registerMountFlags(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	id, err := parseID(fs)
	if err != nil {
		return err
	}

	svc, err := env.service(ctx)
	if err != nil {
		return err
	}

	cfg, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := mf.apply(fs, cfg); err != nil {
		return err
	}
	cfg.ID = id

	updated, err := svc.Update(ctx, cfg)
	if err != nil {
		return err
	}
	return env.printer().printMount(updated)
}

func cmdRemove(ctx context.Context, env *environment, args []string) error {
	fs := newFlagSet(env, "remove")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	id, err := parseID(fs)
	if err != nil {
		return err
	}

	svc, err := env.service(ctx)
	if err != nil {
		return err
	}

	if err := svc.Remove(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(env.stdout, "Removed mount %d\n", id)
	return nil
}

// mountFlags describes a MountConfig on the command line.
type mountFlags struct {
	from       string
	mountPoint string
	backend    string
	options    keyValues
	users      stringList
	groups     stringList
	all        bool
	priority   int
	noPriority bool
}

func registerMountFlags(fs *flag.FlagSet) *mountFlags {
	mf := &mountFlags{options: keyValues{}}
	fs.StringVar(&mf.from, "from", "", "Read the mount from a JSON or YAML file (\"-\" for stdin); other flags override it")
	fs.StringVar(&mf.mountPoint, "mount-point", "", "Mount point below the user's files, e.g. /backups")
	fs.StringVar(&mf.backend, "backend", "", "Backend class (local, smb, ftp, sftp, dav, s3, swift)")
	fs.Var(mf.options, "option", "Backend option key=value (repeatable)")
	fs.Var(&mf.users, "applicable-user", "User the mount applies to (repeatable, global scope only)")
	fs.Var(&mf.groups, "applicable-group", "Group the mount applies to (repeatable, global scope only)")
	fs.BoolVar(&mf.all, "all", false, "Make the mount apply to every user")
	fs.IntVar(&mf.priority, "priority", 0, "Priority among mounts sharing a mount point")
	fs.BoolVar(&mf.noPriority, "no-priority", false, "Clear the priority")
	return mf
}

// apply overwrites the fields of cfg named by the flags set on fs.
func (mf *mountFlags) apply(fs *flag.FlagSet, cfg *mount.MountConfig) error {
	if mf.from != "" {
		if err := readMountFile(mf.from, cfg); err != nil {
			return err
		}
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["mount-point"] {
		cfg.MountPoint = mf.mountPoint
	}
	if set["backend"] {
		cfg.BackendClass = mf.backend
	}
	if set["option"] {
		if cfg.BackendOptions == nil {
			cfg.BackendOptions = make(map[string]any)
		}
		for k, v := range mf.options {
			if v == "" {
				delete(cfg.BackendOptions, k)
				continue
			}
			cfg.BackendOptions[k] = v
		}
	}
	if mf.all && (set["applicable-user"] || set["applicable-group"]) {
		return fmt.Errorf("--all cannot be combined with --applicable-user or --applicable-group")
	}
	if mf.all {
		cfg.ApplicableUsers = nil
		cfg.ApplicableGroups = nil
	}
	if set["applicable-user"] {
		cfg.ApplicableUsers = mf.users
	}
	if set["applicable-group"] {
		cfg.ApplicableGroups = mf.groups
	}
	if set["priority"] && mf.noPriority {
		return fmt.Errorf("--priority cannot be combined with --no-priority")
	}
	if set["priority"] {
		priority := mf.priority
		cfg.Priority = &priority
	}
	if mf.noPriority {
		cfg.Priority = nil
	}
	return nil
}

// readMountFile decodes a MountConfig from path. JSON input is accepted as
// it is valid YAML.
func readMountFile(path string, cfg *mount.MountConfig) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// keyValues collects repeated key=value flags. An empty value removes the
// key on update.
type keyValues map[string]string

func (kv keyValues) String() string {
	pairs := make([]string, 0, len(kv))
	for k, v := range kv {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (kv keyValues) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", value)
	}
	kv[key] = val
	return nil
}

// stringList collects repeated string flags.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(value string) error {
	*l = append(*l, value)
	return nil
}
