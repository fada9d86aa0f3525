package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jjenkins/orgadmin/internal/export"
	"github.com/jjenkins/orgadmin/internal/service"
	"github.com/jjenkins/orgadmin/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
	exportInput  string
	exportLive   bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the position roster",
	Long: `Export writes one row per position, walking the unit hierarchy depth
first. Records come from the local database by default, from the API with
--live, or from a fixture file with --input.

Examples:
  ./orgadmin export --output roster.csv
  ./orgadmin export --format xlsx --output roster.xlsx --live
  ./orgadmin export --input testdata/org.yaml`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "Output format: csv or xlsx")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	exportCmd.Flags().StringVarP(&exportInput, "input", "i", "", "Read records from a YAML or JSON fixture")
	exportCmd.Flags().BoolVar(&exportLive, "live", false, "Read records from the organization API")
	exportCmd.MarkFlagsMutuallyExclusive("input", "live")
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "csv" && exportFormat != "xlsx" {
		return fmt.Errorf("unknown format %q: expected csv or xlsx", exportFormat)
	}
	if exportFormat == "xlsx" && exportOutput == "" {
		return fmt.Errorf("--output is required for xlsx")
	}

	ctx := context.Background()

	src, closeSrc, err := exportSource()
	if err != nil {
		return err
	}
	defer closeSrc()

	a, err := service.Assemble(ctx, src)
	if err != nil {
		return err
	}
	if d := a.Forest.Diagnostics; !d.Empty() {
		logrus.Warnf("Hierarchy fallbacks: %d orphans, %d duplicates, %d cycle breaks",
			len(d.Orphans), len(d.Duplicates), len(d.CycleBreaks))
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch exportFormat {
	case "xlsx":
		err = export.WriteXLSX(w, a.Roots)
	default:
		err = export.WriteCSV(w, a.Roots)
	}
	if err != nil {
		return err
	}

	if exportOutput != "" {
		logrus.Infof("Wrote %s", exportOutput)
	}
	return nil
}

// exportSource picks the record source for the export flags
func exportSource() (service.Source, func(), error) {
	switch {
	case exportInput != "":
		fs, err := service.LoadFileSource(exportInput)
		return fs, func() {}, err
	case exportLive:
		client, err := newAPIClient()
		if err != nil {
			return nil, nil, err
		}
		return service.NewLiveSource(client), func() {}, nil
	default:
		db, err := store.NewDB(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		src := service.NewStoreSource(
			store.NewUnitStore(db),
			store.NewPositionStore(db),
			store.NewSlotStore(db),
			store.NewMemberStore(db),
		)
		return src, func() { db.Close() }, nil
	}
}
