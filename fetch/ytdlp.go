package fetch

import (
	"context"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/multidl-cli/multidl/downloader"
	"github.com/multidl-cli/multidl/log"
)

// Engine runs downloads through the yt-dlp binary via the go-ytdlp
// bindings. It satisfies downloader.MediaRunner.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// EnsureInstalled resolves the yt-dlp binary, downloading a pinned
// release when none is present on the system.
func EnsureInstalled() error {
	_, err := ytdlp.Install(context.Background(), &ytdlp.InstallOptions{})
	return err
}

func (e *Engine) Run(url string, params downloader.MediaParams) error {
	dl := ytdlp.New().
		NoPlaylist().
		Output(params.OutputTemplate)

	if params.ConcurrentFragments > 0 {
		dl.ConcurrentFragments(params.ConcurrentFragments)
	}

	if params.CookieFile != "" {
		dl.Cookies(params.CookieFile)
	}

	if params.Format != "" {
		dl.Format(params.Format)
	}

	if !params.Verbose {
		dl.Quiet().NoWarnings()
	}

	dl.ProgressFunc(time.Second, func(update ytdlp.ProgressUpdate) {
		if update.TotalBytes > 0 {
			log.Debugf("Downloaded %d of %d bytes of %s", update.DownloadedBytes, update.TotalBytes, url)
		}
	})

	_, err := dl.Run(context.Background(), url)
	return err
}
