package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/shivemind/chasingCats-sub003/internal/catalog"
	"github.com/spf13/cobra"
)

func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect mission catalogs",
	}
	cmd.AddCommand(newCatalogValidateCommand())
	return cmd
}

func newCatalogValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Parse and validate a mission catalog",
		Long: `Parse and validate a mission catalog file and print its missions.
Without a file the embedded default catalog is checked.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			cat, err := catalog.Load(path)
			if err != nil {
				return fmt.Errorf("invalid catalog: %w", err)
			}

			out := cmd.OutOrStdout()
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tEVENT\tTARGET\tXP")
			for _, m := range cat.Missions() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", m.ID, m.Criteria.Event, m.Criteria.Target, m.XPReward)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "catalog ok: %d missions, %d levels\n", len(cat.Missions()), len(cat.Levels()))
			return nil
		},
	}
}
