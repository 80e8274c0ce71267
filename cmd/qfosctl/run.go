package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conversem/server-side-query-fan-out-session-reporting/config"
	"github.com/conversem/server-side-query-fan-out-session-reporting/healthserver"
	"github.com/conversem/server-side-query-fan-out-session-reporting/logging"
	"github.com/conversem/server-side-query-fan-out-session-reporting/optimizer"
	"github.com/conversem/server-side-query-fan-out-session-reporting/sink"
	"github.com/conversem/server-side-query-fan-out-session-reporting/source"
)

var (
	runConfigPath string
	runInputPath  string
	runOutputDir  string
	runFormat     string
	runLogStyle   string
	runLogLevel   string
	runHealthPort int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sweep candidate windows over a request log and recommend one",
	Long: `run loads a CDN access-log snapshot, bundles requests into
provider-isolated sessions under each candidate gap threshold, scores
every candidate against the OptScore formula with cross-validation,
and writes the winning window's sessions plus the full report to the
output directory.`,
	RunE: runEvaluation,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "path to a YAML config file (defaults applied for anything unset)")
	runCmd.Flags().StringVarP(&runInputPath, "input", "i", "", "path to a JSON request log (required)")
	runCmd.Flags().StringVarP(&runOutputDir, "output", "o", "./qfos-output", "directory to write sessions and report.json into")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "text", "report print format: text, json, or yaml")
	runCmd.Flags().StringVar(&runLogStyle, "log-style", "terminal", "logging style: terminal, json, logfmt, noop")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "info", "logging level")
	runCmd.Flags().IntVar(&runHealthPort, "health-port", 0, "if set, serve /healthz, /readyz, and /metrics on this port")
	_ = runCmd.MarkFlagRequired("input")
}

func runEvaluation(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger(&logging.Config{
		Style: logging.Style(runLogStyle),
		Level: runLogLevel,
	})
	defer logger.Sync() //nolint:errcheck

	loaded, err := config.LoadWithEnv(runConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := *loaded

	if runHealthPort > 0 {
		healthserver.Start(logger, runHealthPort, func() bool { return true })
	}

	opt, err := optimizer.NewOptimizer(cfg, logger)
	if err != nil {
		return fmt.Errorf("construct optimizer: %w", err)
	}
	defer opt.Close() //nolint:errcheck

	src := source.NewJSONLSource("qfosctl-run", runInputPath)
	snk := sink.NewJSONFile(runOutputDir)

	ctx := context.Background()
	report, err := opt.Run(ctx, src, snk)
	if err != nil {
		return fmt.Errorf("run optimizer: %w", err)
	}

	switch runFormat {
	case "json":
		data, err := report.ToJSON(true)
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(data))
	case "yaml":
		data, err := report.ToYAML()
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(data))
	case "text", "":
		report.Print()
	default:
		return fmt.Errorf("unknown format %q: must be text, json, or yaml", runFormat)
	}

	if report.NoRecommendation {
		return fmt.Errorf("no candidate window met the minimum support threshold")
	}
	return nil
}
