package cli

import (
	"github.com/spf13/cobra"

	"github.com/evcraddock/safe-estate/internal/logging"
	"github.com/evcraddock/safe-estate/internal/scheduler"
	"github.com/evcraddock/safe-estate/internal/web"
)

func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired sessions and one-time codes now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logging.Setup(cfg.DevMode)

			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(database)

			srv, err := web.NewServer(database, cfg)
			if err != nil {
				return err
			}
			scheduler.New("", srv.CleanupJobs()...).RunOnce()
			return nil
		},
	}
}
