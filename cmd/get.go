package cmd

import (
	"github.com/multidl-cli/multidl/batch"
	"github.com/multidl-cli/multidl/source"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(getCmd)

	registerDispatchFlags(getCmd)

	getCmd.Flags().StringP("source", "s", "", "Source hint applied to every url")
	lo.Must0(getCmd.RegisterFlagCompletionFunc("source", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return lo.Map(source.All(), func(id source.ID, _ int) string {
			return id.String()
		}), cobra.ShellCompDirectiveDefault
	}))
}

// getCmd downloads the urls given on the command line.
var getCmd = &cobra.Command{
	Use:   "get <url>...",
	Short: "Download one or more urls given on the command line",
	Example: `  multidl get https://youtu.be/jNQXAC9IVRw
  multidl get --source reddit https://redd.it/abc123`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		hint := lo.Must(cmd.Flags().GetString("source"))

		items := lo.Map(args, func(url string, _ int) batch.ManifestItem {
			return batch.ManifestItem{SourceHint: hint, URL: url}
		})

		result, destination := dispatch(cmd, items)
		report(cmd, result, destination)
	},
}
