// vfc inspects and edits virtual file containers.
//
// Usage:
//
//	vfc [flags] init
//	vfc [flags] ls
//	vfc [flags] stat
//	vfc [flags] cat NAME
//	vfc [flags] put NAME [FILE]
//	vfc [flags] rm NAME
//
// The container is selected with --container (a local file) or with a YAML
// configuration passed to --config, which may name any registered store.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/nuln/vfc"
	"github.com/nuln/vfc/container"
	"github.com/nuln/vfc/internal/logging"
	_ "github.com/nuln/vfc/stores"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "vfc: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	cfg        vfc.Config
	mode       string
	remote     string
	jsonOut    bool
	log        logging.Options
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("vfc", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", "", "YAML container configuration")
	flagSet.StringVarP(&opts.cfg.Path, "container", "c", "", "container location (file path or remote object)")
	flagSet.StringVarP(&opts.cfg.Type, "type", "t", "", "store driver (default \"file\")")
	flagSet.StringVarP(&opts.cfg.Identifier, "identifier", "i", "", "container identifier")
	flagSet.StringVarP(&opts.mode, "mode", "m", "", "open mode: read-write, read-only or overwrite")
	flagSet.StringVar(&opts.remote, "remote", "", "rclone remote for --type rclone")
	flagSet.BoolVar(&opts.jsonOut, "json", false, "print listings as JSON")
	flagSet.StringVar(&opts.log.Level, "log-level", "warn", "log level")
	flagSet.StringVar(&opts.log.File, "log-file", "", "also write JSON logs to this file")
	flagSet.Usage = func() { usage(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	closer, err := logging.Setup(opts.log, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	rest := flagSet.Args()
	if len(rest) == 0 {
		usage(stderr, flagSet)
		return errors.New("missing command")
	}

	cfg, err := opts.config(flagSet)
	if err != nil {
		return err
	}

	command, rest := rest[0], rest[1:]
	switch command {
	case "init":
		return withContainer(cfg, func(c *container.Container) error { return nil })
	case "ls":
		return withContainer(cfg, func(c *container.Container) error { return list(c, stdout, opts.jsonOut) })
	case "stat":
		return withContainer(cfg, func(c *container.Container) error { return stat(c, stdout) })
	case "cat":
		name, err := oneName(command, rest)
		if err != nil {
			return err
		}
		return withContainer(cfg, func(c *container.Container) error { return cat(c, name, stdout) })
	case "put":
		if len(rest) < 1 || len(rest) > 2 {
			return fmt.Errorf("put: want NAME [FILE], got %d arguments", len(rest))
		}
		src := stdin
		if len(rest) == 2 {
			f, err := os.Open(rest[1])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			src = f
		}
		return withContainer(cfg, func(c *container.Container) error { return put(c, rest[0], src) })
	case "rm":
		name, err := oneName(command, rest)
		if err != nil {
			return err
		}
		return withContainer(cfg, func(c *container.Container) error { return remove(c, name) })
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

// config merges the YAML configuration with explicitly set flags.
func (o *options) config(flagSet *pflag.FlagSet) (*vfc.Config, error) {
	cfg := &vfc.Config{Type: "file"}
	if o.configPath != "" {
		loaded, err := vfc.LoadConfig(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if flagSet.Changed("container") {
		cfg.Path = o.cfg.Path
	}
	if flagSet.Changed("type") {
		cfg.Type = o.cfg.Type
	}
	if flagSet.Changed("identifier") {
		cfg.Identifier = o.cfg.Identifier
	}
	if flagSet.Changed("mode") {
		mode, err := vfc.ParseOpenMode(o.mode)
		if err != nil {
			return nil, err
		}
		cfg.Mode = mode
	}
	if flagSet.Changed("remote") {
		if cfg.Options == nil {
			cfg.Options = make(map[string]any)
		}
		cfg.Options["remote"] = o.remote
	}
	if cfg.Path == "" {
		return nil, errors.New("no container given (use --container or --config)")
	}
	return cfg, nil
}

func withContainer(cfg *vfc.Config, fn func(c *container.Container) error) error {
	c, err := container.OpenConfig(cfg)
	if err != nil {
		return err
	}
	log.Debug().Str("container", cfg.Path).Str("type", cfg.Type).Msg("vfc: container opened")

	err = fn(c)
	return errors.Join(err, c.Close())
}

func oneName(command string, args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s: want exactly one stream name, got %d", command, len(args))
	}
	return args[0], nil
}

func list(c *container.Container, w io.Writer, asJSON bool) error {
	infos, err := c.List()
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, info := range infos {
		fmt.Fprintf(tw, "%d\t%s\n", info.Size, info.Name)
	}
	return tw.Flush()
}

func stat(c *container.Container, w io.Writer) error {
	infos, err := c.List()
	if err != nil {
		return err
	}
	var total int64
	for _, info := range infos {
		total += info.Size
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "identifier:\t%q\n", c.Identifier())
	fmt.Fprintf(tw, "store:\t%s\n", vfc.StoreName(c.Store()))
	fmt.Fprintf(tw, "store size:\t%d\n", c.Store().Size())
	fmt.Fprintf(tw, "truncation:\t%v\n", c.Store().SupportsTruncation())
	fmt.Fprintf(tw, "streams:\t%d\n", len(infos))
	fmt.Fprintf(tw, "stream bytes:\t%d\n", total)
	return tw.Flush()
}

func cat(c *container.Container, name string, w io.Writer) error {
	f, err := c.Stream(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

// put replaces the stream called name with the contents of src.
func put(c *container.Container, name string, src io.Reader) error {
	if old, err := c.Stream(name); err == nil {
		if err := old.Erase(); err != nil {
			return err
		}
	} else if !errors.Is(err, vfc.ErrNotFound) {
		return err
	}
	f, err := c.CreateStream(name)
	if err != nil {
		return err
	}
	n, err := io.Copy(f, src)
	if err != nil {
		return err
	}
	log.Info().Str("name", name).Int64("bytes", n).Msg("vfc: stream written")
	return f.Close()
}

func remove(c *container.Container, name string) error {
	f, err := c.Stream(name)
	if err != nil {
		return err
	}
	return f.Erase()
}

func usage(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintf(w, `Usage: vfc [flags] COMMAND [ARGS]

Commands:
  init              create an empty container
  ls                list streams
  stat              show container information
  cat NAME          write a stream to stdout
  put NAME [FILE]   replace a stream with FILE or stdin
  rm NAME           erase a stream

Flags:
%s`, flagSet.FlagUsages())
}
