// Command kitline runs one assembly-line simulation from command-line
// arguments (spec §6). It is the sole entry point that turns raw argv
// into a validated config.Configuration; everything downstream of Run
// only ever sees the validated record.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/kitline/kitline/internal/config"
	"github.com/kitline/kitline/internal/nlog"
	"github.com/kitline/kitline/internal/part"
	"github.com/kitline/kitline/internal/sim"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	app := &cli.App{
		Name:      "kitline",
		Version:   "dev",
		Usage:     "discrete-event assembly-line kit simulation",
		UsageText: "kitline [options] dispensers cells sets pA pB pC pD velocity length",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "emit the final report as JSON"},
			&cli.IntFlag{Name: "verbosity", Aliases: []string{"v"}, Usage: "log verbosity level"},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "common RNG seed for deterministic runs"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "serve Prometheus /metrics on this address (e.g. :9090); disabled if unset"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "kitline:", err)
		if _, ok := err.(usageError); ok {
			os.Exit(1)
		}
		os.Exit(2)
	}
}

type usageError struct{ error }

func run(c *cli.Context) error {
	nlog.SetVerbosity(c.Int("verbosity"))

	cfg, err := parseArgs(c)
	if err != nil {
		return usageError{err}
	}
	if err := cfg.Validate(); err != nil {
		return usageError{err}
	}

	nlog.Infof("kitline: starting run — dispensers=%d cells=%d sets=%d velocity=%d length=%d",
		cfg.Dispensers, cfg.Cells, cfg.SetsTarget, cfg.Velocity, cfg.Length)

	reg := prometheus.NewRegistry()
	system := sim.New(cfg, reg)
	supervisor := sim.NewSupervisor(system)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if addr := c.String("metrics-addr"); addr != "" {
		serveMetrics(ctx, addr, reg)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		nlog.Warnf("kitline: signal received, shutting down")
		cancel()
	}()

	result, err := supervisor.Run(ctx)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return printJSON(result)
	}
	printReport(result)
	if result.Outcome != sim.OutcomeSuccess {
		return fmt.Errorf("run ended: %s", result.Outcome)
	}
	return nil
}

// serveMetrics starts the optional /metrics endpoint (spec §6, SPEC_FULL.md
// §3) in the background; it is torn down when ctx is cancelled at the end
// of the run rather than tied to the process lifetime.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		nlog.Infof("kitline: serving /metrics on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nlog.Errorf("kitline: metrics server: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
}

// parseArgs turns positional argv into a Configuration (spec §6's
// argument order: dispensers cells sets pA pB pC pD velocity length).
func parseArgs(c *cli.Context) (config.Configuration, error) {
	args := c.Args()
	if args.Len() != 9 {
		return config.Configuration{}, fmt.Errorf("expected 9 positional arguments, got %d", args.Len())
	}
	vals := make([]int, 9)
	for i := 0; i < 9; i++ {
		v, err := strconv.Atoi(args.Get(i))
		if err != nil {
			return config.Configuration{}, fmt.Errorf("argument %d (%q) is not an integer", i+1, args.Get(i))
		}
		vals[i] = v
	}
	return config.Configuration{
		Dispensers:     vals[0],
		Cells:          vals[1],
		SetsTarget:     vals[2],
		RequiredPerSet: [4]int{vals[3], vals[4], vals[5], vals[6]},
		Velocity:       vals[7],
		Length:         vals[8],
		Seed:           c.Int64("seed"),
	}, nil
}

func printReport(r sim.Result) {
	fmt.Printf("\n--- run outcome: %s ---\n", r.Outcome)
	fmt.Printf("sets completed:    %d / %d\n", r.SetsCompleted, r.SetsTarget)
	fmt.Printf("sets in progress:  %d\n", r.SetsInProgress)
	fmt.Printf("operator OK/FAIL:  %d / %d\n", r.QueueOK, r.QueueFail)
	for i, t := range part.Types {
		fmt.Printf("type %s: dispensed=%d discarded=%d\n", t, r.PartsDispensed[i], r.DiscardByType[i])
	}
}

func printJSON(r sim.Result) error {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
