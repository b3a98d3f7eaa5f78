package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/multidl-cli/multidl/color"
	"github.com/multidl-cli/multidl/icon"
	"github.com/multidl-cli/multidl/source"
	"github.com/multidl-cli/multidl/style"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)

	sourcesCmd.Flags().BoolP("raw", "r", false, "Print bare source names without aliases or markers")
	sourcesCmd.SetOut(os.Stdout)

	sourcesCmd.AddCommand(sourcesResolveCmd)
}

// sourcesCmd displays the supported source catalogue.
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the supported sources and their url aliases",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("raw")) {
			for _, id := range source.All() {
				cmd.Println(id.String())
			}

			return
		}

		registry := defaultRegistry()

		for _, id := range source.All() {
			marker := " "
			if _, ok := registry.Authenticator(id); ok {
				marker = icon.Get(icon.Lock)
			}

			cmd.Printf("%s %s %s\n", marker, style.Bold(id.String()), style.Faint(strings.Join(source.Aliases(id), ", ")))
		}
	},
}

// sourcesResolveCmd shows which source a hint or url routes to.
var sourcesResolveCmd = &cobra.Command{
	Use:   "resolve <hint-or-url>",
	Short: "Show which source a hint or url routes to",
	Example: `  multidl sources resolve https://vm.tiktok.com/ZMhxyz/
  multidl sources resolve insta`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		subject := args[0]

		if id, ok := source.Resolve(subject, subject).Get(); ok {
			fmt.Printf("%s %s %s\n", icon.Get(icon.Link), style.Bold(id.String()), style.Faint(subject))
			return
		}

		msg := fmt.Sprintf("%s no source matches %s", icon.Get(icon.Fail), style.Fg(color.Red)(subject))
		if suggestion, ok := source.Suggest(subject).Get(); ok {
			msg += fmt.Sprintf(". Did you mean %s?", style.Fg(color.Yellow)(suggestion.String()))
		}

		fmt.Println(msg)
		os.Exit(1)
	},
}
