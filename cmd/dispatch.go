package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/muesli/reflow/wrap"
	"github.com/multidl-cli/multidl/batch"
	"github.com/multidl-cli/multidl/color"
	"github.com/multidl-cli/multidl/downloader"
	"github.com/multidl-cli/multidl/fetch"
	"github.com/multidl-cli/multidl/history"
	"github.com/multidl-cli/multidl/icon"
	"github.com/multidl-cli/multidl/key"
	"github.com/multidl-cli/multidl/log"
	"github.com/multidl-cli/multidl/open"
	"github.com/multidl-cli/multidl/session"
	"github.com/multidl-cli/multidl/source"
	"github.com/multidl-cli/multidl/style"
	"github.com/multidl-cli/multidl/util"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

// registerDispatchFlags wires the flag set shared by the commands that feed
// the batch dispatcher.
func registerDispatchFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("out-dir", "o", "", "Directory downloads are written to (defaults to the configured download path)")
	cmd.Flags().IntP("limit", "l", 0, "Cap the total number of admitted downloads")
	cmd.Flags().IntP("per-source-limit", "p", 0, "Cap the number of admitted downloads per source")
	cmd.Flags().BoolP("dry-run", "n", false, "Admit and report without downloading anything")
	cmd.Flags().BoolP("json", "j", false, "Print the outcome report as raw json")
	cmd.Flags().BoolP("verbose", "V", false, "Pass verbose output through to the download engine")
	cmd.Flags().Bool("open", false, "Open the destination directory when done")
}

// defaultRegistry assembles the handler registry against the production
// collaborators.
func defaultRegistry() *downloader.Registry {
	return downloader.Default(
		session.Default(),
		fetch.NewEngine(),
		fetch.NewDrive(),
		func() downloader.InstagramClient { return fetch.NewInstagram() },
	)
}

// dispatch runs the given items through a dispatcher configured from the
// command flags and the active configuration. It returns the outcome
// report together with the resolved destination directory.
func dispatch(cmd *cobra.Command, items []batch.ManifestItem) (*batch.Result, string) {
	destination := lo.Must(cmd.Flags().GetString("out-dir"))
	if destination == "" {
		destination = viper.GetString(key.DownloadPath)
	}

	opts := &batch.Options{
		Destination: destination,
		DryRun:      lo.Must(cmd.Flags().GetBool("dry-run")),
		Verbose:     lo.Must(cmd.Flags().GetBool("verbose")),
		Registry:    defaultRegistry(),
		OnComplete: func(id source.ID, url string) {
			if err := history.Save(id, url, destination); err != nil {
				log.Warnf("Failed to record %s in history: %s", url, err)
			}
		},
	}

	if cmd.Flags().Changed("limit") {
		opts.Limit = mo.Some(lo.Must(cmd.Flags().GetInt("limit")))
	}

	if cmd.Flags().Changed("per-source-limit") {
		opts.PerSourceLimit = mo.Some(lo.Must(cmd.Flags().GetInt("per-source-limit")))
	}

	if throttle := viper.GetFloat64(key.DownloadThrottle); throttle > 0 {
		opts.Throttle = rate.NewLimiter(rate.Limit(throttle), 1)
	}

	if !opts.DryRun {
		EnsureEngine()
	}

	return batch.Execute(items, opts), destination
}

// report prints the outcome and exits non-zero when any download errored.
func report(cmd *cobra.Command, result *batch.Result, destination string) {
	if lo.Must(cmd.Flags().GetBool("json")) {
		handleErr(json.NewEncoder(os.Stdout).Encode(result))
	} else {
		fmt.Print(renderResult(result))
	}

	if lo.Must(cmd.Flags().GetBool("open")) && len(result.Completed) > 0 {
		util.Ignore(func() error { return open.Start(destination) })
	}

	if !result.Ok() {
		os.Exit(1)
	}
}

func renderResult(result *batch.Result) string {
	width, _, err := util.TerminalSize()
	if err != nil || width <= 0 {
		width = 80
	}

	var b strings.Builder

	for _, completion := range result.Completed {
		b.WriteString(fmt.Sprintf("%s %s %s\n", icon.Get(icon.Success), style.Bold(completion.Source), style.Faint(completion.URL)))
	}

	for _, skip := range result.Skipped {
		b.WriteString(fmt.Sprintf("%s %s %s %s\n", icon.Get(icon.Skip), style.Bold(skip.Source), style.Faint(skip.URL), style.Fg(color.Yellow)(skip.Reason)))
	}

	for _, failure := range result.Errors {
		b.WriteString(fmt.Sprintf("%s %s %s\n", icon.Get(icon.Fail), style.Bold(failure.Source), style.Faint(failure.URL)))
		b.WriteString(wrap.String(style.Fg(color.Red)(failure.Message), width) + "\n")
	}

	if b.Len() > 0 {
		b.WriteString("\n")
	}

	b.WriteString(fmt.Sprintf(
		"%s: %s, %s, %s\n",
		style.Bold(util.Quantify(result.Attempted, "download attempted", "downloads attempted")),
		style.Fg(color.Green)(util.Quantify(len(result.Completed), "completed", "completed")),
		style.Fg(color.Yellow)(util.Quantify(len(result.Skipped), "skipped", "skipped")),
		style.Fg(color.Red)(util.Quantify(len(result.Errors), "failed", "failed")),
	))

	return b.String()
}
