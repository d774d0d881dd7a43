package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/paolomarr/receipt-scanner/internal/history"
	"github.com/paolomarr/receipt-scanner/internal/imageprep"
	"github.com/paolomarr/receipt-scanner/internal/ocrspace"
	"github.com/paolomarr/receipt-scanner/internal/summary"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Pick up OCR_SPACE_KEY and friends from a local .env when present
	_ = godotenv.Load()

	rootFlags := ff.NewFlagSet("receipt-scanner")
	var (
		dbPath      = rootFlags.StringLong("db", "receipt-scanner.db", "Scan history database path")
		verbose     = rootFlags.BoolLong("verbose", "Enable debug logging")
		showVersion = rootFlags.BoolLong("version", "Show version information")
	)

	scanFlags := ff.NewFlagSet("scan").SetParent(rootFlags)
	var (
		apiKey   = scanFlags.StringLong("api-key", "", "OCR.space API key (or set OCR_SPACE_KEY env var)")
		language = scanFlags.StringLong("language", "eng", "OCR language code")
		maxBytes = scanFlags.IntLong("max-bytes", imageprep.DefaultMaxBytes, "Upload size budget in bytes")
		noSave   = scanFlags.BoolLong("no-save", "Do not record the scan in history")
	)

	parseFlags := ff.NewFlagSet("parse").SetParent(rootFlags)
	quick := parseFlags.BoolLong("quick", "Print only the quick total from the parsed text")

	historyFlags := ff.NewFlagSet("history").SetParent(rootFlags)

	var root *ff.Command

	scanCmd := &ff.Command{
		Name:      "scan",
		Usage:     "receipt-scanner scan [FLAGS] IMAGE",
		ShortHelp: "Send a receipt image to OCR.space and print its summary",
		Flags:     scanFlags,
		Exec: func(ctx context.Context, args []string) error {
			configureLogging(*verbose)
			if len(args) != 1 {
				return fmt.Errorf("scan: expected exactly one IMAGE argument")
			}
			key := *apiKey
			if key == "" {
				key = os.Getenv("OCR_SPACE_KEY")
			}
			if key == "" {
				return fmt.Errorf("OCR.space API key is required. Set --api-key flag or OCR_SPACE_KEY environment variable")
			}
			return runScan(ctx, scanConfig{
				imagePath: args[0],
				apiKey:    key,
				language:  *language,
				maxBytes:  *maxBytes,
				dbPath:    *dbPath,
				save:      !*noSave,
			})
		},
	}

	parseCmd := &ff.Command{
		Name:      "parse",
		Usage:     "receipt-scanner parse [FLAGS] RESFILE",
		ShortHelp: "Analyze a saved OCR.space response and print its table",
		Flags:     parseFlags,
		Exec: func(ctx context.Context, args []string) error {
			configureLogging(*verbose)
			if len(args) != 1 {
				return fmt.Errorf("parse: expected exactly one RESFILE argument")
			}
			return runParse(args[0], *quick)
		},
	}

	historyCmd := &ff.Command{
		Name:      "history",
		Usage:     "receipt-scanner history [FLAGS]",
		ShortHelp: "List recorded scans",
		Flags:     historyFlags,
		Exec: func(ctx context.Context, args []string) error {
			configureLogging(*verbose)
			return runHistory(*dbPath)
		},
	}

	root = &ff.Command{
		Name:        "receipt-scanner",
		Usage:       "receipt-scanner [FLAGS] <SUBCOMMAND> ...",
		Flags:       rootFlags,
		Subcommands: []*ff.Command{scanCmd, parseCmd, historyCmd},
		Exec: func(ctx context.Context, args []string) error {
			if *showVersion {
				fmt.Println(version)
				return nil
			}
			return ff.ErrHelp
		},
	}

	err := root.ParseAndRun(context.Background(), os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPT_SCANNER"),
	)
	switch {
	case errors.Is(err, ff.ErrHelp):
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Command(root))
		os.Exit(1)
	case err != nil:
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

type scanConfig struct {
	imagePath string
	apiKey    string
	language  string
	maxBytes  int
	dbPath    string
	save      bool
}

func runScan(ctx context.Context, cfg scanConfig) error {
	data, err := os.ReadFile(cfg.imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	prepared, err := imageprep.Prepare(data, cfg.maxBytes)
	if err != nil {
		return fmt.Errorf("preparing image: %w", err)
	}
	slog.Debug("image prepared", "original_bytes", len(data), "upload_bytes", len(prepared))

	client, err := ocrspace.NewClient(cfg.apiKey, ocrspace.WithLanguage(cfg.language))
	if err != nil {
		return err
	}
	result, raw, err := client.ParseImage(ctx, prepared)
	if err != nil {
		return fmt.Errorf("scanning receipt: %w", err)
	}
	slog.Debug("receipt scanned", "pages", len(result.Pages), "processing_ms", result.ProcessingTime)

	sum := summary.New(result)
	fmt.Println(sum.String())

	if !cfg.save {
		return nil
	}
	db, err := history.NewBoltDB(cfg.dbPath)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer db.Close()

	record := &history.Record{
		ID:          history.NewID(),
		Source:      cfg.imagePath,
		Vendor:      sum.Vendor(),
		Date:        sum.Date(),
		RawResponse: raw,
		ScannedAt:   time.Now(),
	}
	if total, ok := sum.TotalGuess(); ok {
		record.Total = &total
	}
	if err := db.SaveRecord(record); err != nil {
		return fmt.Errorf("saving scan record: %w", err)
	}
	slog.Debug("scan recorded", "id", record.ID)
	return nil
}

func runParse(resFile string, quick bool) error {
	data, err := os.ReadFile(resFile)
	if err != nil {
		return fmt.Errorf("reading response file: %w", err)
	}
	result, err := ocrspace.ParseResponse(data)
	if err != nil {
		return err
	}

	if quick {
		if total, ok := summary.QuickTotal(result); ok {
			fmt.Println(total)
		} else {
			fmt.Println("Total not found")
		}
		return nil
	}

	if len(result.Pages) == 0 {
		return fmt.Errorf("response has no pages to analyze")
	}
	overlay := result.Pages[0].Overlay
	fmt.Println("Raw lines sorted:")
	for _, line := range overlay.LinesByUpperBound() {
		fmt.Println(line.Text)
	}
	fmt.Println()
	fmt.Println(ocrspace.RenderTable(ocrspace.Tableize(overlay)))
	return nil
}

func runHistory(dbPath string) error {
	db, err := history.NewBoltDB(dbPath)
	if err != nil {
		return fmt.Errorf("opening history database: %w", err)
	}
	defer db.Close()

	records, err := db.ListRecords()
	if err != nil {
		return fmt.Errorf("listing records: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No scans recorded yet")
		return nil
	}
	for _, r := range records {
		total := summary.NotAvailable
		if r.Total != nil {
			total = fmt.Sprintf("%.2f", *r.Total)
		}
		fmt.Printf("%s  %s  %s, on %s - Total: %s\n",
			r.ID,
			r.ScannedAt.Format(time.RFC3339),
			r.Vendor,
			r.Date.Format("01/02/06 15:04:05"),
			total,
		)
	}
	return nil
}

func configureLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
