// Command research is the CLI surface for the research engine: a
// rate-limit monitoring/management tool, grounded line-by-line on
// rate_limiting/cli.py's subcommands (status, reset, export, cleanup).
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"deepresearch/internal/config"
	"deepresearch/internal/observability"
	"deepresearch/internal/ratelimit"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) > 0 && args[0] == "rate-limit" {
		args = args[1:]
	}
	if len(args) == 0 {
		printUsage()
		return 1
	}

	cfgPath := os.Getenv("DEEPRESEARCH_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		// The rate-limit surface is usable without a config file; DSNs and
		// secrets still come from the environment.
		cfg = config.Default()
	}
	observability.Configure(cfg.LogPath, cfg.LogLevel)

	ctx := context.Background()
	store, closeStore := ratelimit.OpenStore(ctx, cfg.RateLimit.Store.Backend, cfg.RateLimit.Store.DSN)
	defer closeStore()
	tracker, err := ratelimit.NewTracker(ctx, store, ratelimit.Config{
		Enabled:      cfg.RateLimit.Enabled,
		Profile:      ratelimit.Profile(cfg.RateLimit.Profile),
		MemoryWindow: cfg.RateLimit.MemoryWindow,
		Exploration:  cfg.RateLimit.ExplorationP,
		Learning:     cfg.RateLimit.LearningRate,
		DecayPerDay:  cfg.RateLimit.DecayPerDay,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: init rate limit tracker: %v\n", err)
		return 1
	}

	switch args[0] {
	case "status":
		return cmdStatus(tracker, args[1:])
	case "reset":
		return cmdReset(ctx, tracker, args[1:])
	case "export":
		return cmdExport(tracker, args[1:])
	case "cleanup":
		return cmdCleanup(ctx, tracker, args[1:])
	default:
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Rate limiting monitoring and management.

Usage:
  research rate-limit status [--engine NAME]
  research rate-limit reset --engine NAME
  research rate-limit export [--format table|csv|json]
  research rate-limit cleanup [--days N]`)
}

func cmdStatus(tracker *ratelimit.Tracker, args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	engine := fs.String("engine", "", "show stats for a specific engine")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	var stats []ratelimit.Estimate
	if *engine != "" {
		e, ok := tracker.Stats(*engine)
		if !ok {
			fmt.Printf("No rate limit data found for engine: %s\n", *engine)
			return 0
		}
		stats = []ratelimit.Estimate{e}
	} else {
		stats = tracker.AllStats()
	}

	fmt.Println(formatStatsTable(stats))
	return 0
}

func cmdReset(ctx context.Context, tracker *ratelimit.Tracker, args []string) int {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	engine := fs.String("engine", "", "engine to reset")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if *engine == "" {
		fmt.Fprintln(os.Stderr, "Error: --engine parameter is required for reset command")
		return 1
	}
	if err := tracker.ResetEngine(ctx, *engine); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Reset rate limit data for %s\n", *engine)
	return 0
}

func cmdExport(tracker *ratelimit.Tracker, args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	format := fs.String("format", "table", "output format: table|csv|json")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	stats := tracker.AllStats()
	switch *format {
	case "csv":
		w := csv.NewWriter(os.Stdout)
		_ = w.Write([]string{"engine_type", "base_wait_seconds", "min_wait_seconds", "max_wait_seconds", "last_updated", "total_attempts", "success_rate"})
		for _, s := range stats {
			_ = w.Write([]string{
				s.EngineType,
				fmt.Sprintf("%.4f", s.BaseWaitSeconds),
				fmt.Sprintf("%.4f", s.MinWaitSeconds),
				fmt.Sprintf("%.4f", s.MaxWaitSeconds),
				fmt.Sprintf("%.4f", s.LastUpdated),
				fmt.Sprintf("%d", s.TotalAttempts),
				fmt.Sprintf("%.4f", s.SuccessRate),
			})
		}
		w.Flush()
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	default:
		fmt.Println(formatStatsTable(stats))
	}
	return 0
}

func cmdCleanup(ctx context.Context, tracker *ratelimit.Tracker, args []string) int {
	fs := flag.NewFlagSet("cleanup", flag.ContinueOnError)
	days := fs.Int("days", 30, "remove data older than this many days")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if _, err := tracker.CleanupOldData(ctx, time.Duration(*days)*24*time.Hour); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Cleaned up rate limit data older than %d days\n", *days)
	return 0
}

func formatStatsTable(stats []ratelimit.Estimate) string {
	if len(stats) == 0 {
		return "No rate limit data available."
	}
	out := "Rate Limit Statistics:\n"
	out += strings.Repeat("-", 80) + "\n"
	out += fmt.Sprintf("%-20s %-12s %-20s %-10s %-10s %-15s\n", "Engine", "Base Wait", "Range", "Success", "Attempts", "Updated")
	out += strings.Repeat("-", 80) + "\n"
	for _, s := range stats {
		rng := fmt.Sprintf("%.1fs - %.1fs", s.MinWaitSeconds, s.MaxWaitSeconds)
		updated := time.Unix(int64(s.LastUpdated), 0).Format("01-02 15:04")
		out += fmt.Sprintf("%-20s %-12.2f %-20s %-10.1f%% %-10d %-15s\n",
			s.EngineType, s.BaseWaitSeconds, rng, s.SuccessRate*100, s.TotalAttempts, updated)
	}
	return out
}
