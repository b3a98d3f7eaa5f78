package cmd

import (
	"errors"
	"fmt"

	"github.com/multidl-cli/multidl/auth"
	"github.com/multidl-cli/multidl/color"
	"github.com/multidl-cli/multidl/icon"
	"github.com/multidl-cli/multidl/session"
	"github.com/multidl-cli/multidl/source"
	"github.com/multidl-cli/multidl/style"
	"github.com/multidl-cli/multidl/util"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authStatusCmd)
}

// authCmd runs the interactive credential flow of a source.
var authCmd = &cobra.Command{
	Use:     "auth <source>",
	Short:   "Log in to a source and store the session for later downloads",
	Example: "  multidl auth instagram",
	Args:    cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := resolveSourceArg(args[0])
		handleErr(err)

		authenticator, ok := defaultRegistry().Authenticator(id)
		if !ok {
			fmt.Printf("%s %s does not use authentication\n", icon.Get(icon.Skip), style.Bold(id.String()))
			return
		}

		credential, err := authenticator.Authenticate(auth.Survey{})
		handleErr(err)

		if credential == nil {
			fmt.Printf("%s Login aborted\n", icon.Get(icon.Skip))
			return
		}

		fmt.Printf("%s Logged in to %s\n", icon.Get(icon.Success), style.Bold(id.String()))
	},
}

// authStatusCmd lists the stored session artifacts of every source.
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session state of every source",
	Run: func(cmd *cobra.Command, args []string) {
		store := session.Default()
		registry := defaultRegistry()

		for _, id := range registry.Sources() {
			marker := " "
			if _, ok := registry.Authenticator(id); ok {
				marker = icon.Get(icon.Lock)
			}

			line := fmt.Sprintf("%s %s", marker, style.Bold(id.String()))

			if meta, ok := store.ReadMeta(id).Get(); ok && meta.Username != "" {
				line += " " + style.Fg(color.Green)("as "+meta.Username)
			}

			files, err := store.Files(id)
			switch {
			case err != nil || len(files) == 0:
				line += " " + style.Faint("no session")
			default:
				line += " " + style.Faint(util.Quantify(len(files), "session file", "session files"))
			}

			fmt.Println(line)
		}
	},
}

// resolveSourceArg maps a user-supplied source name to its id, suggesting
// the closest known source when the name is unknown.
func resolveSourceArg(name string) (source.ID, error) {
	if id, ok := source.FromString(name).Get(); ok {
		return id, nil
	}

	msg := fmt.Sprintf("unknown source %s", style.Fg(color.Red)(name))
	if suggestion, ok := source.Suggest(name).Get(); ok {
		msg += fmt.Sprintf(". Did you mean %s?", style.Fg(color.Yellow)(suggestion.String()))
	}

	return 0, errors.New(msg)
}
