package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/config"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/export"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/health"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/ingest"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/photos"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/review"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/server"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/storage"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/summary"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/telegram"
	"github.com/rishabh2794/Prayagraj-Quality-Check-Tool/internal/verdict"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Filter flags shared by the offline commands
	filterZone    string
	filterWard    string
	filterSubtype string

	exportOut   string
	reportOut   string
	sendReport  bool
	reportLimit int
	checkAll    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var exportCmd = &cobra.Command{
	Use:   "export <input>",
	Short: "Write the QC log for an export using the saved verdicts",
	Long: `Ingests <input>, applies the optional filters and writes qc_log_<locale>.xlsx
with each row coloured by its saved verdict.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var summaryCmd = &cobra.Command{
	Use:   "summary <input>",
	Short: "Print QC progress and render a report image",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummary,
}

var checkPhotosCmd = &cobra.Command{
	Use:   "check-photos <input>",
	Short: "Check the before/after photo links of an export",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckPhotos,
}

func init() {
	for _, cmd := range []*cobra.Command{exportCmd, summaryCmd, checkPhotosCmd} {
		cmd.Flags().StringVar(&filterZone, "zone", review.All, "Only records in this zone")
		cmd.Flags().StringVar(&filterWard, "ward", review.All, "Only records in this ward")
		cmd.Flags().StringVar(&filterSubtype, "subtype", review.All, "Only records of this complaint sub type")
	}

	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default: qc_log_<locale>.xlsx)")

	summaryCmd.Flags().StringVarP(&reportOut, "out", "o", "qc_report.png", "Report image path (empty to skip)")
	summaryCmd.Flags().BoolVar(&sendReport, "send", false, "Send the report to Telegram")
	summaryCmd.Flags().IntVar(&reportLimit, "limit", 50, "Maximum rows drawn in the report image")

	checkPhotosCmd.Flags().BoolVar(&checkAll, "all", false, "Check every matching record instead of the first page")
}

// openRepository returns the configured verdict backend, initialized, and a
// function releasing it.
func openRepository(c *config.Config, log *zap.Logger) (verdict.Repository, func() error, error) {
	switch c.StoreBackend {
	case config.BackendSQLite:
		db, err := storage.OpenSQLite(c.SQLitePath, log)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		repo := storage.NewJSONFile(c.VerdictFile, log)
		if err := repo.Init(); err != nil {
			return nil, nil, err
		}
		log.Info("✓ Verdict file ready", zap.String("path", repo.Path()))
		return repo, func() error { return nil }, nil
	}
}

// loadSession ingests path and opens a filtered session over it with the
// saved verdicts.
func loadSession(path string, repo verdict.Repository) (*review.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	reader := ingest.NewReader(cfg.HeaderScanRows, cfg.FallbackHeaderRow, logger)
	table, err := reader.Read(f, filepath.Base(path))
	if err != nil {
		return nil, err
	}

	sess := review.NewSession(table, verdict.Open(repo, logger), cfg.PageSize)
	sess.SetFilter(review.Filter{Zone: filterZone, Ward: filterWard, Subtype: filterSubtype})
	return sess, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Info("🚀 Starting QC review server...")

	repo, closeRepo, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	srv := server.New(server.Deps{
		Config:   cfg,
		Repo:     repo,
		Monitor:  health.NewMonitor(),
		Telegram: telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.DebugMode, logger),
		Checker:  photos.NewChecker(nil, cfg.WorkerPoolSize, logger),
		Logger:   logger,
	})

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("🛑 Shutting down", zap.String("signal", sig.String()))
		if err := srv.Shutdown(); err != nil {
			logger.Warn("⚠️  Shutdown error", zap.Error(err))
		}
	}()

	return srv.Listen(":" + cfg.ServerPort)
}

func runExport(cmd *cobra.Command, args []string) error {
	repo, closeRepo, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	sess, err := loadSession(args[0], repo)
	if err != nil {
		return err
	}

	target := exportOut
	if target == "" {
		target = export.FileName(cfg.Locale)
	}

	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	if err := export.Write(out, sess.Table().Columns, sess.View(), sess.Store()); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	logger.Info("📤 QC log written", zap.String("path", target), zap.Int("rows", len(sess.View())))
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d rows to %s\n", len(sess.View()), target)
	return nil
}

func runSummary(cmd *cobra.Command, args []string) error {
	if sendReport && !cfg.TelegramEnabled() {
		return fmt.Errorf("--send needs TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID")
	}

	repo, closeRepo, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	sess, err := loadSession(args[0], repo)
	if err != nil {
		return err
	}

	counts := sess.Summary()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	for _, q := range verdict.Qualities {
		fmt.Fprintf(w, "%s\t%d\n", q, counts[q])
	}
	fmt.Fprintf(w, "QC Done\t%d\n", counts.QCDone())
	fmt.Fprintf(w, "QC Status\t%.1f%%\n", counts.QCStatusPercent())
	fmt.Fprintf(w, "Sample Size\t%.1f%%\n", counts.SampleSizePercent())
	if err := w.Flush(); err != nil {
		return err
	}

	if reportOut == "" && !sendReport {
		return nil
	}

	view := sess.View()
	if reportLimit > 0 && len(view) > reportLimit {
		view = view[:reportLimit]
	}
	if len(view) == 0 {
		logger.Warn("⚠️  No records match the filters, skipping report image")
		return nil
	}

	png, err := summary.RenderReport("QC Progress "+cfg.Locale, summary.RowsFor(view, sess.Store()), counts)
	if err != nil {
		return err
	}

	if reportOut != "" {
		if err := os.WriteFile(reportOut, png, 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		logger.Info("🖼️  Report image written", zap.String("path", reportOut))
	}

	if sendReport {
		tg := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.DebugMode, logger)
		if err := tg.SendReport(cmd.Context(), summary.Footer(counts), png); err != nil {
			return err
		}
	}
	return nil
}

func runCheckPhotos(cmd *cobra.Command, args []string) error {
	repo, closeRepo, err := openRepository(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRepo()

	sess, err := loadSession(args[0], repo)
	if err != nil {
		return err
	}

	records := sess.Page()
	if checkAll {
		records = sess.View()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results := photos.NewChecker(nil, cfg.WorkerPoolSize, logger).Check(ctx, records)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COMPLAINT\tPHOTO\tSTATUS\tDETAIL")
	problems := 0
	for _, r := range results {
		if r.Status == photos.StatusOK {
			continue
		}
		problems++
		detail := r.Error
		if detail == "" && r.HTTPStatus != 0 {
			detail = fmt.Sprintf("HTTP %d", r.HTTPStatus)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ComplaintNumber, r.Kind, r.Status, detail)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d photo links need attention\n", problems, len(results))
	return nil
}
