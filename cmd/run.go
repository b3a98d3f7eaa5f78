package cmd

import (
	"github.com/multidl-cli/multidl/batch"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)

	registerDispatchFlags(runCmd)

	runCmd.Flags().StringP("format", "f", "", "Manifest format, one of json, csv or yaml (defaults to the file extension)")
	lo.Must0(runCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return lo.Map(batch.Formats(), func(format batch.Format, _ int) string {
			return string(format)
		}), cobra.ShellCompDirectiveDefault
	}))
}

// runCmd downloads every url listed in a manifest file.
var runCmd = &cobra.Command{
	Use:     "run <manifest>",
	Short:   "Download every url listed in a manifest file",
	Example: "  multidl run downloads.yaml --limit 10 --out-dir ~/media",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]

		format := batch.Format(lo.Must(cmd.Flags().GetString("format")))
		if format == "" {
			detected, err := batch.DetectFormat(path)
			handleErr(err)
			format = detected
		}

		items, err := batch.LoadManifest(path, format)
		handleErr(err)

		result, destination := dispatch(cmd, items)
		report(cmd, result, destination)
	},
}
