// Command sf-cases pulls Salesforce cases, optionally scoped to one account,
// and writes them with a summary analysis to a JSON file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/natserract/sfsearch/cases/services"
	"github.com/natserract/sfsearch/pkg/config"
	"github.com/natserract/sfsearch/pkg/export"
	"github.com/natserract/sfsearch/pkg/logging"
	"github.com/natserract/sfsearch/pkg/recordid"
	"github.com/natserract/sfsearch/pkg/salesforce"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	accountID  string
	openOnly   bool
	closedOnly bool
	limit      int
	outputFile string
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
		Use:          "sf-cases [account-url]",
		Short:        "Export and analyze Salesforce cases",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.accountID, "account-id", "", "Account ID to filter cases")
	flags.BoolVar(&opts.openOnly, "open-only", false, "Only open cases")
	flags.BoolVar(&opts.closedOnly, "closed-only", false, "Only closed cases")
	flags.IntVar(&opts.limit, "limit", services.DefaultLimit, "Maximum number of cases")
	flags.StringVar(&opts.outputFile, "output-file", "", "Output JSON file (default cases_analysis_<timestamp>.json)")
	flags.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	cmd.MarkFlagsMutuallyExclusive("open-only", "closed-only")

	return cmd
}

// resolveAccountID prefers an account id found in the URL argument over
// --account-id.
func resolveAccountID(args []string, flagValue string) (string, error) {
	if len(args) == 0 {
		return flagValue, nil
	}
	id, ok := recordid.Account.Extract(args[0])
	if !ok {
		return "", fmt.Errorf("could not extract an account id from %q", args[0])
	}
	return id, nil
}

func run(ctx context.Context, opts *options, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return err
	}

	logger := logging.MustNew(logging.Options{Name: "sf-cases", Dir: cfg.LogDir, Verbose: opts.verbose})
	defer logger.Sync()

	accountID, err := resolveAccountID(args, opts.accountID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return err
	}

	filter := services.Filter{
		AccountID:  accountID,
		OpenOnly:   opts.openOnly,
		ClosedOnly: opts.closedOnly,
		Limit:      opts.limit,
	}
	if err := filter.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid filter: %v\n", err)
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

	cases, err := services.NewCaseService(client, logger).Fetch(ctx, filter)
	if err != nil {
		logger.Error("Failed to retrieve cases", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Failed to retrieve cases: %v\n", err)
		return err
	}

	now := time.Now()
	report := services.NewReport(cases, filter, now)
	printSummary(report.Analysis)

	name := opts.outputFile
	if name == "" {
		name = fmt.Sprintf("cases_analysis_%s.json", now.Format(export.TimestampLayout))
	}
	path, err := export.NewWriter("", logger).WriteDocument(export.Entry{ID: accountID, Document: report}, name)
	if err != nil {
		logger.Error("Failed to save case report", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Failed to save case report: %v\n", err)
		return err
	}
	fmt.Printf("Case report saved to %s\n", path)
	return nil
}

func printSummary(a services.Analysis) {
	fmt.Printf("Total cases: %d (open %d, closed %d, escalated %d)\n",
		a.TotalCases, a.OpenCases, a.ClosedCases, a.EscalatedCases)
	if a.TotalCases == 0 {
		return
	}
	fmt.Printf("Created in the last 7 days: %d, last 30 days: %d\n", a.RecentCases7d, a.RecentCases30d)

	fmt.Println("By status:")
	for _, k := range sortedKeys(a.ByStatus) {
		fmt.Printf("  %-20s %d\n", k, a.ByStatus[k])
	}
	fmt.Println("By priority:")
	for _, k := range sortedKeys(a.ByPriority) {
		fmt.Printf("  %-20s %d\n", k, a.ByPriority[k])
	}
}

// sortedKeys orders keys by descending count, then name.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}
