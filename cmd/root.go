package cmd

import (
	"fmt"
	"os"

	"github.com/jjenkins/orgadmin/internal/config"
	"github.com/jjenkins/orgadmin/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "orgadmin",
	Short: "Administer a military organization hierarchy",
	Long: `orgadmin syncs units, positions and recruitment slots from the
organization API, renders the unit hierarchy and exports position rosters.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		cfg = c
		logrus.SetLevel(cfg.Level())
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newAPIClient builds the backend client from the loaded configuration
func newAPIClient() (*service.APIClient, error) {
	if !cfg.HasAPI() {
		return nil, fmt.Errorf("ORG_API_URL environment variable is required")
	}
	return service.NewAPIClient(service.ClientOptions{
		BaseURL: cfg.APIURL,
		Token:   cfg.APIToken,
		Timeout: cfg.APITimeout,
		RPS:     cfg.APIRPS,
	})
}
