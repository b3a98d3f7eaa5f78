package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/multidl-cli/multidl/fetch"
	"github.com/multidl-cli/multidl/icon"
	"github.com/multidl-cli/multidl/style"
)

// EnsureEngine makes sure the yt-dlp engine binary is available, downloading
// it on first use. Commands that hit the media engine call this before
// dispatching.
func EnsureEngine() {
	if err := fetch.EnsureInstalled(); err != nil {
		printEngineError(err)
		os.Exit(1)
	}
}

func printEngineError(err error) {
	var installCmd string
	switch runtime.GOOS {
	case "darwin":
		installCmd = "brew install yt-dlp"
	case "linux":
		installCmd = "sudo apt install yt-dlp" // Generic, maybe check distro
	case "windows":
		installCmd = "scoop install yt-dlp"
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(style.HiRed).
		Padding(1, 2).
		Margin(1, 0)

	title := style.New().Bold(true).Foreground(style.HiRed).Render(fmt.Sprintf("%s Error: Download Engine Unavailable", icon.Get(icon.Fail)))
	body := style.New().Foreground(style.Text).Render(fmt.Sprintf("The yt-dlp engine could not be provisioned: %s.", err))

	suggestion := fmt.Sprintf("\n\nTo install it manually, try running:\n  %s", style.New().Foreground(style.AccentColor).Bold(true).Render(installCmd))
	if installCmd == "" {
		suggestion = ""
	}

	fmt.Println(box.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"\n",
			body,
			suggestion,
		),
	))
}
