package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"

	"github.com/rumor-ml/commons.systems/fidelity/internal/config"
	"github.com/rumor-ml/commons.systems/fidelity/internal/domain"
	"github.com/rumor-ml/commons.systems/fidelity/internal/evaluator"
	"github.com/rumor-ml/commons.systems/fidelity/internal/export/ofx"
	"github.com/rumor-ml/commons.systems/fidelity/internal/fidelity"
	fsync "github.com/rumor-ml/commons.systems/fidelity/internal/firestore"
	"github.com/rumor-ml/commons.systems/fidelity/internal/output"
	"github.com/rumor-ml/commons.systems/fidelity/internal/request"
	"github.com/rumor-ml/commons.systems/fidelity/internal/store"
	"github.com/rumor-ml/commons.systems/fidelity/internal/ui"
)

const (
	version = "0.1.0"

	defaultWindowDays = 30
)

var (
	// Global flags
	versionFlag = flag.Bool("version", false, "Show version")

	// Core CLI flags
	accountsFlag = flag.String("accounts", "", "Comma-separated account numbers or aliases (default: all accounts)")
	startFlag    = flag.String("start", "", "Window start date, YYYY-MM-DD (default: end minus 30 days)")
	endFlag      = flag.String("end", "", "Window end date, YYYY-MM-DD (default: today)")
	configFile   = flag.String("config", "", "YAML config file with aliases and output settings")
	listOnly     = flag.Bool("list", false, "List accounts and exit without fetching transactions")
	dryRun       = flag.Bool("dry-run", false, "Show the request that would be sent without fetching transactions")
	verbose      = flag.Bool("verbose", false, "Show detailed logs")

	// Output flags
	outputFile = flag.String("output", "", "Output JSON file (default: stdout)")
	mergeMode  = flag.Bool("merge", false, "Merge with existing output file")
	ofxFile    = flag.String("ofx", "", "Also export an OFX statement file")
	sqliteFile = flag.String("sqlite", "", "Also upsert into a SQLite ledger file")

	// Sync flags
	firestoreProject    = flag.String("firestore-project", "", "Sync transactions to this Firestore project")
	firestoreCollection = flag.String("firestore-collection", "", "Firestore collection (default from config, then \"transactions\")")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `fidelity - Fetch Fidelity accounts and transactions through a logged-in browser session

Usage:
  fidelity [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr, `
Examples:
  # List accounts
  fidelity -list

  # Fetch the last 30 days for all accounts to stdout
  fidelity

  # Fetch a window for two accounts into a JSON file and a SQLite ledger
  fidelity -accounts brokerage,roth -start 2025-11-01 -end 2025-11-30 -output txns.json -sqlite ledger.db

  # Inspect the request without sending it
  fidelity -accounts 1234 -dry-run

`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("fidelity version %s\n", version)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg := config.Default()
	if *configFile != "" {
		loaded, err := config.LoadFromFile(*configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	start, end, err := parseWindow(*startFlag, *endFlag)
	if err != nil {
		return err
	}

	log := logrus.New()
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	ui.Header("Fidelity Data Retrieval")
	ui.Step(1, 4, "Opening browser for login")

	browser, err := evaluator.Start(ctx)
	if err != nil {
		return err
	}
	defer browser.Close()

	ui.Info("Log in to Fidelity in the browser window, then press Enter here to continue.")
	if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err != nil {
		return fmt.Errorf("failed to read login confirmation: %w", err)
	}

	client := fidelity.New(browser, fidelity.WithLogger(log))

	ui.Step(2, 4, "Resolving accounts")
	accounts, err := client.GetAccounts(ctx)
	if err != nil {
		return describeFailure("resolve accounts", err)
	}
	ui.Success(fmt.Sprintf("Found %d accounts", len(accounts)))
	for _, a := range accounts {
		ui.BlueText(fmt.Sprintf("  %s  %s", a.Number, a.Name))
	}

	if *listOnly {
		return nil
	}

	requested := requestedNumbers(cfg, accounts)
	selected, err := selectAccounts(accounts, requested)
	if err != nil {
		return err
	}

	if *dryRun {
		opts, err := request.TransactionsOptions(selected, start, end)
		if err != nil {
			return err
		}
		fmt.Println(request.FormatOptions(opts))
		ui.Info(fmt.Sprintf("Dry run complete. Would fetch %s to %s for %d accounts.", start, end, len(selected)))
		return nil
	}

	ui.Step(3, 4, fmt.Sprintf("Fetching transactions %s to %s", start, end))
	transactions, err := client.GetTransactions(ctx, requested, start, end)
	if err != nil {
		return describeFailure("fetch transactions", err)
	}
	pending := 0
	for _, t := range transactions {
		if t.Pending {
			pending++
		}
	}
	ui.Success(fmt.Sprintf("Fetched %d transactions (%d pending)", len(transactions), pending))

	ui.Step(4, 4, "Writing output")
	report := &output.Report{
		FetchedAt:    time.Now(),
		Start:        start,
		End:          end,
		Accounts:     selected,
		Transactions: transactions,
	}

	jsonPath := *outputFile
	if jsonPath == "" {
		jsonPath = cfg.Output.JSONPath
	}
	if err := output.WriteReportToFile(report, output.WriteOptions{
		MergeMode: *mergeMode,
		FilePath:  jsonPath,
	}); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if jsonPath != "" {
		ui.Success(fmt.Sprintf("Report written to %s", jsonPath))
	}

	if path := firstNonEmpty(*ofxFile, cfg.Output.OFXPath); path != "" {
		if err := ofx.WriteFile(path, selected, transactions, report.FetchedAt); err != nil {
			return err
		}
		ui.Success(fmt.Sprintf("OFX statement written to %s", path))
	}

	if path := firstNonEmpty(*sqliteFile, cfg.Output.SQLitePath); path != "" {
		if err := upsertLedger(ctx, path, transactions); err != nil {
			return err
		}
		ui.Success(fmt.Sprintf("Ledger updated at %s", path))
	}

	project := firstNonEmpty(*firestoreProject, cfg.Firestore.Project)
	if project != "" {
		collection := firstNonEmpty(*firestoreCollection, cfg.Firestore.Collection, "transactions")
		runID, err := syncFirestore(ctx, project, collection, requested, start, end, transactions)
		if err != nil {
			return err
		}
		ui.Success(fmt.Sprintf("Synced to Firestore project %s (run %s)", project, runID))
	}

	return nil
}

// parseWindow resolves the start/end flags, defaulting to the 30 days ending
// today.
func parseWindow(startStr, endStr string) (civil.Date, civil.Date, error) {
	end := civil.DateOf(time.Now())
	if endStr != "" {
		parsed, err := civil.ParseDate(endStr)
		if err != nil {
			return civil.Date{}, civil.Date{}, fmt.Errorf("invalid -end date %q (expected YYYY-MM-DD): %w", endStr, err)
		}
		end = parsed
	}

	start := end.AddDays(-defaultWindowDays)
	if startStr != "" {
		parsed, err := civil.ParseDate(startStr)
		if err != nil {
			return civil.Date{}, civil.Date{}, fmt.Errorf("invalid -start date %q (expected YYYY-MM-DD): %w", startStr, err)
		}
		start = parsed
	}

	if end.Before(start) {
		return civil.Date{}, civil.Date{}, fmt.Errorf("-start %s is after -end %s", start, end)
	}
	return start, end, nil
}

// requestedNumbers returns the account numbers to fetch: the -accounts flag
// resolved through the config aliases, or every fetched account when the
// flag is empty.
func requestedNumbers(cfg *config.Config, accounts []domain.Account) []string {
	if *accountsFlag == "" {
		numbers := make([]string, len(accounts))
		for i, a := range accounts {
			numbers[i] = a.Number
		}
		return numbers
	}

	var names []string
	for _, part := range strings.Split(*accountsFlag, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return cfg.ResolveAccounts(names)
}

// selectAccounts maps requested numbers to fetched accounts, preserving
// request order.
func selectAccounts(accounts []domain.Account, requested []string) ([]domain.Account, error) {
	byNumber := make(map[string]domain.Account, len(accounts))
	for _, a := range accounts {
		byNumber[a.Number] = a
	}

	selected := make([]domain.Account, 0, len(requested))
	var missing []string
	for _, num := range requested {
		a, ok := byNumber[num]
		if !ok {
			missing = append(missing, num)
			continue
		}
		selected = append(selected, a)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("account(s) not found: %s (run with -list to see available accounts)",
			strings.Join(missing, ", "))
	}
	return selected, nil
}

func upsertLedger(ctx context.Context, path string, transactions []domain.Transaction) (err error) {
	ledger, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := ledger.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close ledger %s: %w", path, closeErr)
		}
	}()

	return ledger.Upsert(ctx, transactions)
}

func syncFirestore(ctx context.Context, project, collection string, acctNums []string, start, end civil.Date, transactions []domain.Transaction) (runID string, err error) {
	client, err := fsync.NewClient(ctx, project, collection)
	if err != nil {
		return "", err
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close Firestore client: %w", closeErr)
		}
	}()

	return client.Sync(ctx, acctNums, start, end, transactions)
}

// describeFailure adds a user-facing hint for the failure classes the fetch
// path can hit.
func describeFailure(action string, err error) error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		switch derr.Kind {
		case domain.KindTransport:
			ui.Error(fmt.Sprintf("Fidelity returned HTTP %d. The session may have expired; log in again and retry.", derr.Status))
		case domain.KindNotFound:
			ui.Error(fmt.Sprintf("Unknown account(s): %s. Run with -list to see available accounts.", strings.Join(derr.Missing, ", ")))
		case domain.KindBackend:
			ui.Error("Fidelity reports its account backend is unavailable. Retry later.")
		}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
