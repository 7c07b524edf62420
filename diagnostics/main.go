// Command sf-diag reports on the local environment: which settings are
// present, whether the sf CLI is installed, and whether the Salesforce
// org and the configured sinks are reachable.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/natserract/sfsearch/pkg/config"
	"github.com/natserract/sfsearch/pkg/elasticsearch"
	"github.com/natserract/sfsearch/pkg/logging"
	"github.com/spf13/cobra"
)

type options struct {
	salesforce bool
	postgres   bool
	verbose    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "sf-diag",
		Short:        "Diagnose Salesforce and Elasticsearch connectivity",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.salesforce, "salesforce", false, "Also authenticate against the Salesforce org")
	flags.BoolVar(&opts.postgres, "postgres", false, "Also check the PostgreSQL sink")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")

	return cmd
}

func run(ctx context.Context, opts *options) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return err
	}

	logger := logging.MustNew(logging.Options{Name: "sf-diag", Dir: cfg.LogDir, Verbose: opts.verbose})
	defer logger.Sync()

	fmt.Println("Environment:")
	for _, line := range EnvStatus(os.LookupEnv) {
		fmt.Println("  " + line)
	}

	report := &Report{}
	CheckSFBinary(report, nil)
	if opts.salesforce {
		CheckSalesforce(ctx, report, cfg, nil, logger)
	}

	esCfg, err := elasticsearch.LoadConfig()
	if err != nil {
		report.Fail("Elasticsearch config", err)
	} else {
		ProbeElasticsearch(ctx, report, esCfg, logger)
	}

	if opts.postgres {
		ProbePostgres(ctx, report, logger)
	}

	fmt.Println("Checks:")
	for _, c := range report.Checks {
		status := "OK  "
		if !c.OK {
			status = "FAIL"
		}
		fmt.Printf("  %s %-26s %s\n", status, c.Name, c.Detail)
	}

	if n := report.Failed(); n > 0 {
		return fmt.Errorf("%d checks failed", n)
	}
	return nil
}
