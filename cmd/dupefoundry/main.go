// Command dupefoundry is a thin CLI around the detection core: printing and
// validating configuration presets (preset, validate-config), listing source
// files under a root (discover), and serving Prometheus metrics
// (serve-metrics). Parsing a real host-language source tree into
// hostast.Tree values is the job of a parser adaptor (spec §6), which is out
// of this repo's scope; no subcommand parses source files or runs the
// analyzer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/fulmenhq/dupefoundry/config"
	"github.com/fulmenhq/dupefoundry/foundry/similarity"
	"github.com/fulmenhq/dupefoundry/pathfinder"
	"github.com/fulmenhq/dupefoundry/telemetry"
	"github.com/fulmenhq/dupefoundry/telemetry/exporters"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "preset":
		err = runPreset(args)
	case "validate-config":
		err = runValidateConfig(args)
	case "discover":
		err = runDiscover(args)
	case "serve-metrics":
		err = runServeMetrics(args)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runPreset(args []string) error {
	fs := flag.NewFlagSet("preset", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	name := fs.String("name", "moderate", "Preset name (moderate|strict|lenient|aggressive|test_setup)")
	out := fs.String("out", "", "Write the preset to this path as YAML config instead of stdout JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	presets := config.Presets()
	opts, ok := presets[strings.ToLower(*name)]
	if !ok {
		names := make([]string, 0, len(presets))
		for n := range presets {
			names = append(names, n)
		}
		sort.Strings(names)
		if did := didYouMean(*name, names); did != "" {
			return fmt.Errorf("unknown preset %q (known: %s) — did you mean %q?", *name, strings.Join(names, ", "), did)
		}
		return fmt.Errorf("unknown preset %q (known: %s)", *name, strings.Join(names, ", "))
	}

	if *out != "" {
		return config.SaveConfig(config.NewConfig(opts), *out)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(opts)
}

func runValidateConfig(args []string) error {
	fs := flag.NewFlagSet("validate-config", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("provide exactly one config file")
	}

	cfg, err := config.LoadConfig(fs.Arg(0))
	if err != nil {
		fmt.Printf("invalid: %v\n", err)
		return err
	}
	fmt.Printf("valid: %s (version %s)\n", fs.Arg(0), cfg.Version)
	return nil
}

func runDiscover(args []string) error {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	root := fs.String("root", ".", "Root directory to search")
	pattern := fs.String("pattern", "**/*.java", "Comma-separated doublestar glob patterns, relative to root")
	includeHidden := fs.Bool("include-hidden", false, "Include dot-prefixed paths")
	if err := fs.Parse(args); err != nil {
		return err
	}

	patterns := strings.Split(*pattern, ",")
	for i := range patterns {
		patterns[i] = strings.TrimSpace(patterns[i])
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	finder := pathfinder.NewFinder(*includeHidden)
	matches, err := finder.Discover(ctx, *root, patterns)
	if err != nil {
		return err
	}

	for _, m := range matches {
		fmt.Println(m)
	}
	return nil
}

// runServeMetrics starts a Prometheus exporter HTTP server and routes the
// process's telemetry emissions to it until interrupted. Intended to run
// as a sidecar alongside repeated discover/preset invocations in a CI
// pipeline that scrapes duplicate-detection metrics over time.
func runServeMetrics(args []string) error {
	fs := flag.NewFlagSet("serve-metrics", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	addr := fs.String("addr", ":9090", "Address for the Prometheus /metrics endpoint")
	prefix := fs.String("prefix", "dupefoundry", "Metric name prefix")
	if err := fs.Parse(args); err != nil {
		return err
	}

	exporter := exporters.NewPrometheusExporter(*prefix, *addr)
	if err := exporter.Start(); err != nil {
		return err
	}
	defer exporter.Stop()

	system, err := telemetry.NewSystem(&telemetry.Config{Enabled: true, Emitter: exporter})
	if err != nil {
		return err
	}
	telemetry.SetGlobalSystem(system)

	fmt.Printf("serving metrics on %s/metrics\n", exporter.GetAddr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

// didYouMean returns the single best fuzzy match for input among
// candidates, or "" if nothing scores above Suggest's default threshold.
func didYouMean(input string, candidates []string) string {
	suggestions := similarity.Suggest(input, candidates, similarity.DefaultSuggestOptions())
	if len(suggestions) == 0 {
		return ""
	}
	return suggestions[0].Value
}

func usage() {
	fmt.Fprint(os.Stderr, `dupefoundry commands:
  preset --name <preset> [--out <path>]           Print or save a named options preset.
  validate-config <path>                          Validate a YAML options config file.
  discover --root <dir> [--pattern <globs>]       List candidate translation-unit files under a root.
  serve-metrics [--addr <host:port>]              Serve Prometheus metrics until interrupted.
`)
}
