package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codepad/internal/language"
)

var languagesCmd = &cobra.Command{
	Use:     "languages",
	Aliases: []string{"langs"},
	Short:   "List the supported languages",
	RunE: func(cmd *cobra.Command, args []string) error {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tVERSION\tERROR SAMPLE")
		for _, l := range language.All() {
			sample := "yes"
			if _, err := language.FaultySample(l); err != nil {
				sample = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", l, l.DisplayName(), l.Version(), sample)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}
