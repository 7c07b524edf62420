// Command sf-to-es exports Salesforce opportunities, given by URL, to
// Elasticsearch (or PostgreSQL) and JSON files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/natserract/sfsearch/opportunities/services"
	"github.com/natserract/sfsearch/pkg/config"
	"github.com/natserract/sfsearch/pkg/currency"
	"github.com/natserract/sfsearch/pkg/export"
	"github.com/natserract/sfsearch/pkg/logging"
	"github.com/natserract/sfsearch/pkg/opportunity"
	"github.com/natserract/sfsearch/pkg/recordid"
	"github.com/natserract/sfsearch/pkg/salesforce"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	jsonOnly        bool
	outputFile      string
	outputDir       string
	combinedJSON    bool
	verbose         bool
	continueOnError bool
	maxWorkers      int
	targetCurrency  string
	validateOnly    bool
	sink            string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "sf-to-es <opportunity-url>...",
		Short:        "Export Salesforce opportunities to Elasticsearch and JSON",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.jsonOnly, "json-only", false, "Output JSON only (skip indexing)")
	flags.StringVar(&opts.outputFile, "output-file", "", "JSON output filename (single URL) or combined filename (batch)")
	flags.StringVar(&opts.outputDir, "output-dir", "opportunity_exports", "Output directory for batch JSON files")
	flags.BoolVar(&opts.combinedJSON, "combined-json", false, "Save all opportunities to a single JSON file (batch mode)")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	flags.BoolVar(&opts.continueOnError, "continue-on-error", false, "Skip invalid URLs and keep going after failures")
	flags.IntVar(&opts.maxWorkers, "max-workers", 1, "Maximum concurrent lookups (1 = sequential)")
	flags.StringVar(&opts.targetCurrency, "target-currency", "", "Target currency for conversion (default SF_TARGET_CURRENCY or USD)")
	flags.BoolVar(&opts.validateOnly, "validate-only", false, "Only validate URLs without processing")
	flags.StringVar(&opts.sink, "sink", sinkElasticsearch, "Where to index documents: elasticsearch or postgres")

	return cmd
}

func run(ctx context.Context, opts *options, urls []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return err
	}
	if opts.targetCurrency != "" {
		cfg.TargetCurrency = config.NormalizeCurrency(opts.targetCurrency)
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --target-currency: %v\n", err)
			return err
		}
	}

	logger := logging.MustNew(logging.Options{Name: "sf-to-es", Dir: cfg.LogDir, Verbose: opts.verbose})
	defer logger.Sync()

	logger.Info("Starting Salesforce opportunity export",
		zap.Int("urls", len(urls)),
		zap.String("target_currency", cfg.TargetCurrency))

	if opts.validateOnly {
		return validateOnly(urls)
	}

	urls, err = filterURLs(urls, opts.continueOnError, logger)
	if err != nil {
		return err
	}

	client := salesforce.NewSalesforceWithLogger(cfg, logger)
	fmt.Println("Connecting to Salesforce...")
	if err := client.Connect(ctx); err != nil {
		logger.Error("Failed to connect to Salesforce", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Salesforce connection failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "Please ensure you're authenticated with: sf org login web -a %s\n", cfg.OrgAlias)
		return err
	}

	var sink services.Sink
	if !opts.jsonOnly {
		s, closeSink, err := openSink(ctx, opts.sink, logger)
		if err != nil {
			logger.Warn("Indexing unavailable, switching to JSON-only mode", zap.String("sink", opts.sink), zap.Error(err))
			fmt.Printf("Indexing unavailable (%v), switching to JSON-only mode\n", err)
			opts.jsonOnly = true
		} else {
			defer closeSink()
			sink = s
			fmt.Printf("Indexing into %s\n", sink.Name())
		}
	}

	normalizer := currency.NewNormalizer(
		currency.DefaultFallbackRates(),
		currency.NewHTTPRateFetcher(cfg.RatesAPIURL, logger),
		logger,
	)
	mapper := opportunity.NewMapper(cfg.TargetCurrency, cfg.DefaultCurrency)
	pipeline := services.NewPipeline(client, normalizer, mapper, sink, logger)

	results, metrics, err := pipeline.ProcessBatch(ctx, urls, services.BatchOptions{
		MaxWorkers:      opts.maxWorkers,
		ContinueOnError: opts.continueOnError,
	})
	if err != nil {
		logger.Error("Processing failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Processing failed: %v\n", err)
		return err
	}

	for _, r := range results {
		printResult(r)
	}

	batchMode := len(urls) > 1
	if opts.jsonOnly || opts.outputFile != "" || batchMode {
		if err := saveResults(results, metrics, opts, batchMode, logger); err != nil {
			logger.Error("Failed to save JSON output", zap.Error(err))
			fmt.Fprintf(os.Stderr, "Failed to save JSON output: %v\n", err)
			return err
		}
	}

	fmt.Printf("Processed %d opportunities: %d succeeded (%d error documents), %d failed, %d indexed, %d index failures\n",
		metrics.Processed, metrics.Succeeded, metrics.ErrorDocuments, metrics.Failed, metrics.Indexed, metrics.IndexFailures)
	return nil
}

func validateOnly(urls []string) error {
	valid := 0
	for i, url := range urls {
		if id, ok := recordid.Opportunity.Extract(url); ok {
			fmt.Printf("%3d. %s - %s\n", i+1, id, url)
			valid++
		} else {
			fmt.Printf("%3d. INVALID - %s\n", i+1, url)
		}
	}
	fmt.Printf("Valid URLs: %d/%d\n", valid, len(urls))
	if valid != len(urls) {
		return fmt.Errorf("%d invalid URLs", len(urls)-valid)
	}
	return nil
}

// filterURLs drops URLs that are not opportunity links. Without
// continueOnError any invalid URL aborts the run.
func filterURLs(urls []string, continueOnError bool, logger *zap.Logger) ([]string, error) {
	var valid, invalid []string
	for _, url := range urls {
		if recordid.Opportunity.ValidateURL(url) {
			valid = append(valid, url)
			continue
		}
		logger.Warn("Invalid URL", zap.String("url", url))
		invalid = append(invalid, url)
	}

	if len(invalid) == 0 {
		return valid, nil
	}
	if !continueOnError {
		fmt.Fprintln(os.Stderr, "Invalid URLs found:")
		for i, url := range invalid {
			if i == 5 {
				fmt.Fprintf(os.Stderr, "  ... and %d more\n", len(invalid)-5)
				break
			}
			fmt.Fprintf(os.Stderr, "  %s\n", url)
		}
		fmt.Fprintln(os.Stderr, "Use --continue-on-error to skip invalid URLs")
		return nil, fmt.Errorf("found %d invalid URLs", len(invalid))
	}

	logger.Info("Continuing with valid URLs",
		zap.Int("valid", len(valid)),
		zap.Int("skipped", len(invalid)))
	if len(valid) == 0 {
		return nil, fmt.Errorf("no valid URLs to process")
	}
	return valid, nil
}

func printResult(r services.Result) {
	switch {
	case !r.Success:
		fmt.Printf("FAILED  %s: %s\n", r.URL, r.Error)
	case r.Error != "":
		fmt.Printf("WARN    %s %s: %s\n", r.ID, r.Name, r.Error)
	default:
		fmt.Printf("OK      %s %s\n", r.ID, r.Name)
	}
}

func saveResults(results []services.Result, metrics *services.BatchMetrics, opts *options, batchMode bool, logger *zap.Logger) error {
	var entries []export.Entry
	for _, r := range results {
		if r.Success && r.Document != nil {
			entries = append(entries, export.Entry{ID: r.ID, Document: r.Document})
		}
	}

	if !batchMode {
		if len(entries) == 0 {
			return nil
		}
		path, err := export.NewWriter("", logger).WriteDocument(entries[0], opts.outputFile)
		if err != nil {
			return err
		}
		fmt.Printf("JSON saved to %s\n", path)
		return nil
	}

	writer := export.NewWriter(opts.outputDir, logger)
	if opts.combinedJSON {
		path, err := writer.WriteCombined(entries, export.Metadata{
			TotalProcessed: len(results),
			Successful:     len(entries),
			Failed:         len(results) - len(entries),
			RunID:          metrics.RunID,
		}, opts.outputFile)
		if err != nil {
			return err
		}
		fmt.Printf("Combined results saved to %s\n", path)
		return nil
	}

	paths, err := writer.WriteEach(entries)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %d files to %s\n", len(paths), opts.outputDir)
	return nil
}
