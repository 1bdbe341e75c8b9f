package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/safe-estate/internal/admin"
	"github.com/evcraddock/safe-estate/internal/property"
	"github.com/evcraddock/safe-estate/internal/web"
)

func newImagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Inspect and assign listing images",
	}

	check := &cobra.Command{
		Use:   "check",
		Short: "Show image coverage per listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(database)

			repo := property.NewRepository(database)
			props, err := allListings(repo, property.ImageFilter{})
			if err != nil {
				return err
			}
			stats, err := repo.ImageStats()
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), map[string]any{"properties": props, "stats": stats})
			}
			if err := printImageTable(cmd.OutOrStdout(), props); err != nil {
				return err
			}
			printImageStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}

	var mode, ids string
	assign := &cobra.Command{
		Use:   "assign",
		Short: "Download stock images for listings",
		Long: "Assign downloaded stock images to listings. Mode unique gives each listing its own image, " +
			"replacing what it has; mode placeholder only fills listings without images. " +
			"Without --ids every listing is considered.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			action, ok := assignActions[mode]
			if !ok {
				return fmt.Errorf("invalid mode %q (use unique or placeholder)", mode)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			database, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB(database)

			srv, err := web.NewServer(database, cfg)
			if err != nil {
				return err
			}

			selected := admin.ParseIDs(ids)
			if ids == "" {
				props, err := allListings(property.NewRepository(database), property.ImageFilter{})
				if err != nil {
					return err
				}
				for _, p := range props {
					selected = append(selected, p.ID)
				}
			}
			if len(selected) == 0 {
				return fmt.Errorf("no listings selected")
			}

			res, err := srv.Admin().Bulk(cmd.Context(), admin.BulkRequest{Action: action, PropertyIDs: selected})
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), res)
			}
			printBulkResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	assign.Flags().StringVar(&mode, "mode", "placeholder", "assignment mode (unique|placeholder)")
	assign.Flags().StringVar(&ids, "ids", "", "comma-separated listing IDs (default: all listings)")

	cmd.AddCommand(check, assign)
	return cmd
}

var assignActions = map[string]string{
	"unique":      admin.ActionAssignUnique,
	"placeholder": admin.ActionAssignPlaceholder,
}

// allListings walks every page of the admin image list.
func allListings(repo *property.Repository, f property.ImageFilter) ([]*property.Property, error) {
	var all []*property.Property
	for n := 1; ; n++ {
		props, p, err := repo.ImageList(f, strconv.Itoa(n))
		if err != nil {
			return nil, err
		}
		all = append(all, props...)
		if !p.HasNext {
			return all, nil
		}
	}
}
