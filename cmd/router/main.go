// Command router is the CLI entrypoint: route, batch, classify,
// feedback, and admin subcommands over internal/router.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arohandas/introute/config"
	"github.com/arohandas/introute/display"
	"github.com/arohandas/introute/internal/decisionlog"
	"github.com/arohandas/introute/internal/router"
	"github.com/arohandas/introute/models"
)

var (
	forceBackend string
	useLLM       bool
	withReason   bool
	period       string
)

func main() {
	root := &cobra.Command{
		Use:   "router",
		Short: "Intelligent request-routing core",
	}

	root.AddCommand(routeCmd(), batchCmd(), classifyCmd(), feedbackCmd(), pruneCmd(), analyticsCmd(), cacheStatsCmd(), epsilonCmd(), reportCmd())

	if err := root.Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func withApp(fn func(ctx context.Context, app *router.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	app, err := router.NewApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("wire router: %w", err)
	}
	defer app.Close()

	return fn(ctx, app)
}

func routeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route [query]",
		Short: "Route a single query to a backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *router.App) error {
				decision, _, err := app.Router.RouteWithOptions(ctx, args[0], router.Options{
					ForceBackend:     models.Backend(forceBackend),
					IncludeReasoning: withReason,
					UseLLMClassifier: useLLM,
				})
				if err != nil {
					display.PrintError(args[0], err)
					return err
				}
				display.PrintDecision(decision)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&forceBackend, "force-backend", "", "skip classification and force a backend")
	cmd.Flags().BoolVar(&withReason, "reasoning", false, "include store-availability warnings in the reasoning")
	cmd.Flags().BoolVar(&useLLM, "llm", false, "use the LLM-assisted classifier instead of rule-based")
	return cmd
}

func batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch [file]",
		Short: "Route every newline-delimited query in file (or stdin)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, err := readQueries(args)
			if err != nil {
				return err
			}

			return withApp(func(ctx context.Context, app *router.App) error {
				bar := display.NewBatchProgressBar(len(queries))
				result, err := app.Router.RouteBatch(ctx, queries)
				if err != nil {
					return err
				}
				for _, r := range result.Results {
					bar.Add(1)
					if r.Err != nil {
						display.PrintError(r.Query, r.Err)
						continue
					}
					display.PrintDecision(r.Decision)
				}
				fmt.Printf("\n%d/%d from cache, %dms total\n", result.CacheHits, result.TotalQueries, result.ProcessingTimeMS)
				return nil
			})
		},
	}
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify [query]",
		Short: "Classify a query without routing or caching it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *router.App) error {
				result := app.Router.Classify(ctx, args[0])
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			})
		},
	}
}

func feedbackCmd() *cobra.Command {
	var requestID string
	var success bool
	var quality float64
	var latencyMS int64
	var correctedBackend string
	var notes string

	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Submit an outcome for a previously routed request",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *router.App) error {
				result, err := app.Router.Feedback(ctx, models.Feedback{
					RequestID:        requestID,
					Success:          success,
					QualityScore:     quality,
					LatencyMS:        latencyMS,
					CorrectedBackend: models.Backend(correctedBackend),
					Notes:            notes,
					Timestamp:        time.Now(),
				})
				if err != nil {
					return err
				}
				fmt.Printf("ok=%v %s\n", result.OK, result.Message)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&requestID, "request-id", "", "request_id from a prior route response")
	cmd.Flags().BoolVar(&success, "success", true, "whether the routed backend handled the query well")
	cmd.Flags().Float64Var(&quality, "quality", 0, "0-1 quality score")
	cmd.Flags().Int64Var(&latencyMS, "latency-ms", 0, "observed end-to-end latency in milliseconds")
	cmd.Flags().StringVar(&correctedBackend, "corrected-backend", "", "backend that should have been chosen instead")
	cmd.Flags().StringVar(&notes, "notes", "", "free-text note for calibration review")
	cmd.MarkFlagRequired("request-id")
	return cmd
}

func pruneCmd() *cobra.Command {
	var expiredOnly bool
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove cache entries: expired only by default, or all with --expired-only=false",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *router.App) error {
				removed, err := app.Router.PruneCache(ctx, expiredOnly)
				if err != nil {
					return err
				}
				if expiredOnly {
					fmt.Printf("removed %d expired cache entries\n", removed)
				} else {
					fmt.Printf("removed %d cache entries\n", removed)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&expiredOnly, "expired-only", true, "remove only expired entries instead of all entries")
	return cmd
}

func analyticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Report routing analytics over a time window",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *router.App) error {
				report, err := app.Router.Analytics(ctx, decisionlog.Period(period))
				if err != nil {
					return err
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", string(decisionlog.Period24Hours), "1h, 24h, 7d, or 30d")
	return cmd
}

func cacheStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache-stats",
		Short: "Report routing-cache occupancy and hit counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *router.App) error {
				stats, err := app.Router.CacheStats(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			})
		},
	}
}

func epsilonCmd() *cobra.Command {
	var epsilon float64
	cmd := &cobra.Command{
		Use:   "epsilon",
		Short: "Retune the selector's exploration rate at runtime",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *router.App) error {
				if err := app.Router.SetEpsilon(epsilon); err != nil {
					return err
				}
				fmt.Printf("epsilon set to %.2f\n", epsilon)
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&epsilon, "value", 0.1, "exploration rate in [0, 1]")
	cmd.MarkFlagRequired("value")
	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [agent-id]",
		Short: "Report one agent's performance records across task types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *router.App) error {
				report, err := app.Router.AgentReport(ctx, args[0])
				if err != nil {
					return err
				}
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			})
		},
	}
	return cmd
}

func readQueries(args []string) ([]string, error) {
	var r *bufio.Scanner
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()
		r = bufio.NewScanner(f)
	} else {
		r = bufio.NewScanner(os.Stdin)
	}

	var queries []string
	for r.Scan() {
		line := strings.TrimSpace(r.Text())
		if line != "" {
			queries = append(queries, line)
		}
	}
	return queries, r.Err()
}
