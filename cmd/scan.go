package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nvduc/joomprobe-cli/internal/scanner"
	"github.com/nvduc/joomprobe-cli/internal/signature"
)

const (
	defaultThreads     = 10
	defaultTimeoutSecs = 5.0
	defaultRetries     = 3
)

var scanFlags struct {
	threads     int
	timeoutSecs float64
	retries     int
	rateLimit   int
	insecure    bool
	scanTimeout time.Duration
	signatures  string
	output      string
	userAgent   string
}

var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Scan a Joomla site for components and misconfigurations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Flags win over config file values; viper supplies file/env
		// defaults for flags the user did not set.
		if !cmd.Flags().Changed("threads") && viper.IsSet("scan.threads") {
			scanFlags.threads = viper.GetInt("scan.threads")
		}
		if !cmd.Flags().Changed("timeout") && viper.IsSet("scan.timeout") {
			scanFlags.timeoutSecs = viper.GetFloat64("scan.timeout")
		}
		if !cmd.Flags().Changed("retries") && viper.IsSet("scan.retries") {
			scanFlags.retries = viper.GetInt("scan.retries")
		}
		if !cmd.Flags().Changed("user-agent") && viper.IsSet("scan.user_agent") {
			scanFlags.userAgent = viper.GetString("scan.user_agent")
		}
		if !cmd.Flags().Changed("signatures") && viper.IsSet("scan.signatures") {
			scanFlags.signatures = viper.GetString("scan.signatures")
		}

		db, err := loadDatabase(scanFlags.signatures)
		if err != nil {
			return err
		}

		cfg := scanner.Config{
			TargetURL:          args[0],
			Concurrency:        scanFlags.threads,
			RequestTimeout:     time.Duration(scanFlags.timeoutSecs * float64(time.Second)),
			ScanTimeout:        scanFlags.scanTimeout,
			RateLimit:          scanFlags.rateLimit,
			MaxAttempts:        scanFlags.retries,
			InsecureSkipVerify: scanFlags.insecure,
			UserAgent:          scanFlags.userAgent,
		}

		s, err := scanner.New(cfg, db, logger)
		if err != nil {
			return err
		}

		// Ctrl-C cancels cooperatively; completed probes are kept and a
		// partial report is still printed.
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("%s %s (%d targets, %d threads)\n",
			colorInfo("Scanning"), cfg.TargetURL, len(s.Targets()), cfg.Concurrency)

		report, err := s.Scan(ctx)
		if err != nil {
			return err
		}

		printSummary(cmd.OutOrStdout(), report)

		if scanFlags.output != "" {
			if err := writeReport(scanFlags.output, report); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", colorInfo("Report written:"), scanFlags.output)
		}

		if len(report.Findings) > 0 {
			// Non-zero exit when findings exist, so CI pipelines can gate
			// on scan results.
			os.Exit(2)
		}
		return nil
	},
}

func loadDatabase(path string) (*signature.Database, error) {
	if path == "" {
		return signature.Default(), nil
	}
	db, err := signature.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("signature database %s: %w", path, err)
	}
	return db, nil
}

func init() {
	scanCmd.Flags().IntVarP(&scanFlags.threads, "threads", "t", defaultThreads, "maximum concurrent probes")
	scanCmd.Flags().Float64Var(&scanFlags.timeoutSecs, "timeout", defaultTimeoutSecs, "per-request timeout in seconds")
	scanCmd.Flags().IntVar(&scanFlags.retries, "retries", defaultRetries, "attempts per probe for transient failures")
	scanCmd.Flags().IntVar(&scanFlags.rateLimit, "rate", 0, "max requests per second (0 = unlimited)")
	scanCmd.Flags().BoolVarP(&scanFlags.insecure, "insecure", "k", false, "skip TLS certificate verification")
	scanCmd.Flags().DurationVar(&scanFlags.scanTimeout, "scan-timeout", 0, "global scan deadline (e.g. 2m, 0 = none)")
	scanCmd.Flags().StringVar(&scanFlags.signatures, "signatures", "", "path to a signature database YAML (default: built-in)")
	scanCmd.Flags().StringVarP(&scanFlags.output, "output", "o", "", "write the JSON report to this file")
	scanCmd.Flags().StringVar(&scanFlags.userAgent, "user-agent", "", "override the probe User-Agent")
}
