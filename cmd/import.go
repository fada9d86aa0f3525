package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jjenkins/orgadmin/internal/service"
	"github.com/jjenkins/orgadmin/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var importDate string
var importInput string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import the organization from the backend API",
	Long: `Import downloads units, positions, recruitment slots and members from
the organization API and stores them in PostgreSQL.

Records that disappeared upstream are pruned, and a staffing snapshot is
written for every unit whose rolled-up counts changed on the given date.

Examples:
  # Import for today's date
  ./orgadmin import

  # Import for a specific date
  ./orgadmin import --date 2025-01-15

  # Load a fixture instead of calling the API
  ./orgadmin import --input testdata/org.yaml`,
	Run: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	today := time.Now().Format("2006-01-02")
	importCmd.Flags().StringVarP(&importDate, "date", "d", today, "Snapshot date (YYYY-MM-DD)")
	importCmd.Flags().StringVarP(&importInput, "input", "i", "", "Read records from a YAML or JSON fixture")
}

func runImport(cmd *cobra.Command, args []string) {
	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logrus.Warn("Received interrupt signal, shutting down...")
		cancel()
	}()

	var upstream service.Source
	if importInput != "" {
		fs, err := service.LoadFileSource(importInput)
		if err != nil {
			logrus.Fatalf("Failed to load fixture: %v", err)
		}
		upstream = fs
	} else {
		client, err := newAPIClient()
		if err != nil {
			logrus.Fatal(err)
		}
		upstream = service.NewLiveSource(client)
	}

	// Connect to database
	logrus.Info("Connecting to database...")
	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	importer := service.NewImporter(
		upstream,
		store.NewUnitStore(db),
		store.NewPositionStore(db),
		store.NewSlotStore(db),
		store.NewMemberStore(db),
		store.NewSnapshotStore(db),
	)
	importer.SetLogLevel(cfg.Level())

	logrus.Infof("Starting import for date: %s", importDate)
	stats, err := importer.Import(ctx, importDate)
	if err != nil {
		if ctx.Err() != nil {
			logrus.Warn("Import cancelled")
			if stats != nil {
				importer.PrintSummary(stats)
			}
			os.Exit(1)
		}
		logrus.Fatalf("Import failed: %v", err)
	}
	importer.PrintSummary(stats)

	// Calculate and store system metrics
	logrus.Info("Calculating system metrics...")
	metricsService := service.NewMetricsService(db)
	m, err := metricsService.CalculateAndStore(ctx)
	if err != nil {
		logrus.Warnf("Failed to calculate metrics: %v", err)
	} else {
		logrus.Info("=== System Metrics ===")
		logrus.Infof("Total units:      %d (%d active)", m.TotalUnits, m.ActiveUnits)
		logrus.Infof("Total positions:  %d", m.TotalPositions)
		logrus.Infof("Vacant positions: %d (%s%%)", m.VacantPositions, m.VacancyRate.StringFixed(1))
		logrus.Infof("Open slots:       %d", m.OpenSlots)
		logrus.Infof("Members:          %d", m.TotalMembers)
		logrus.Infof("Largest unit:     %s (%d members)", m.LargestUnit, m.LargestUnitMembers)
	}

	// Exit with error code if there were failures
	if stats.Failed() > 0 {
		os.Exit(1)
	}
}
