package cmd

import (
	"github.com/jjenkins/orgadmin/internal/command"
	"github.com/jjenkins/orgadmin/internal/handlers"
	"github.com/jjenkins/orgadmin/internal/service"
	"github.com/jjenkins/orgadmin/internal/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var port string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the organization admin web server",
	Long: `Start the web server that renders the unit hierarchy from the local
database. When ORG_API_URL is set, edits are dispatched to the organization API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Use PORT env var unless the flag was given
		if !cmd.Flags().Changed("port") && cfg.Port != "" {
			port = cfg.Port
		}

		db, err := store.NewDB(cfg.DatabaseURL)
		if err != nil {
			logrus.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		// Initialize stores
		unitStore := store.NewUnitStore(db)
		src := service.NewStoreSource(
			unitStore,
			store.NewPositionStore(db),
			store.NewSlotStore(db),
			store.NewMemberStore(db),
		)

		var dispatcher *command.Dispatcher
		if cfg.HasAPI() {
			client, err := newAPIClient()
			if err != nil {
				return err
			}
			// Structural checks run against the live tree, not the local copy
			dispatcher = command.NewDispatcher(client, service.NewLiveSource(client), logrus.StandardLogger())
		} else {
			logrus.Warn("ORG_API_URL not set, editing is disabled")
		}

		app := handlers.NewApp(handlers.Deps{
			Source:     src,
			Snapshots:  store.NewSnapshotStore(db),
			Metrics:    service.NewMetricsService(db),
			Dispatcher: dispatcher,
			JWTSecret:  cfg.JWTSecret,
			Logger:     logrus.StandardLogger(),
			RequestLog: true,
		})

		logrus.Infof("Starting server on :%s", port)
		if err := app.Listen(":" + port); err != nil {
			logrus.Fatalf("Failed to start server: %v", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&port, "port", "p", "8080", "Port to run the server on")
}
