package downloader

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/spf13/viper"

	"github.com/multidl-cli/multidl/filesystem"
	"github.com/multidl-cli/multidl/key"
	"github.com/multidl-cli/multidl/log"
	"github.com/multidl-cli/multidl/session"
	"github.com/multidl-cli/multidl/source"
)

// MediaParams is the parameter set a single engine invocation runs with.
type MediaParams struct {
	OutputTemplate      string
	CookieFile          string
	Format              string
	ConcurrentFragments int
	Verbose             bool
}

// MediaRunner invokes the external media engine for a single url. The
// production implementation shells out to yt-dlp; tests substitute a
// fake.
type MediaRunner interface {
	Run(url string, params MediaParams) error
}

// mediaProfile pins down how one source maps onto the shared engine: the
// identifier pattern its urls must satisfy and the output template its
// files are laid out with.
type mediaProfile struct {
	pattern        *regexp.Regexp
	outputTemplate string
}

const defaultTemplate = "%(title)s [%(id)s].%(ext)s"

var profiles = map[source.ID]mediaProfile{
	source.Twitter: {
		pattern:        regexp.MustCompile(`/status(?:es)?/(\d+)`),
		outputTemplate: "twitter/%(uploader_id)s/%(upload_date)s_%(id)s.%(ext)s",
	},
	source.YouTube: {
		pattern:        regexp.MustCompile(`(?:v=|youtu\.be/|/shorts/|/embed/|/live/)([\w-]{6,})`),
		outputTemplate: "youtube/%(channel)s/%(title)s [%(id)s].%(ext)s",
	},
	source.Reddit: {
		pattern:        regexp.MustCompile(`(?:/comments/|redd\.it/)([0-9a-z]+)`),
		outputTemplate: "reddit/%(uploader)s/%(title)s [%(id)s].%(ext)s",
	},
	source.Facebook: {
		pattern:        regexp.MustCompile(`(?:/videos/|/watch/?\?v=|fb\.watch/|/reel/)([\w.-]+)`),
		outputTemplate: "facebook/%(uploader)s/%(title)s [%(id)s].%(ext)s",
	},
	source.Threads: {
		pattern:        regexp.MustCompile(`/post/([\w-]+)`),
		outputTemplate: defaultTemplate,
	},
	source.TikTok: {
		pattern:        regexp.MustCompile(`(?:/(?:video|photo)/(\d+)|vm\.tiktok\.com/([\w.-]+)|douyin\.com/)`),
		outputTemplate: "%(title)s.%(ext)s",
	},
}

// identifier extracts the platform identifier of a url, reporting false
// when the url does not satisfy the profile at all.
func (p mediaProfile) identifier(url string) (string, bool) {
	if p.pattern == nil {
		return "", true
	}

	match := p.pattern.FindStringSubmatch(url)
	if match == nil {
		return "", false
	}

	for _, group := range match[1:] {
		if group != "" {
			return group, true
		}
	}

	return match[0], true
}

// Media is the shared handler for every source served by the external
// media engine, parameterized per source by its profile.
type Media struct {
	id      source.ID
	runner  MediaRunner
	store   *session.Store
	profile mediaProfile
}

func NewMedia(id source.ID, runner MediaRunner, store *session.Store) *Media {
	profile, ok := profiles[id]
	if !ok {
		profile = mediaProfile{outputTemplate: defaultTemplate}
	}

	return &Media{id: id, runner: runner, store: store, profile: profile}
}

func (m *Media) Download(url, destination string, opts Options) error {
	id, ok := m.profile.identifier(url)
	if !ok {
		return &InvalidInputError{URL: url, Reason: "no " + m.id.String() + " identifier found"}
	}

	cookieFile, err := m.resolveCookieFile(opts)
	if err != nil {
		return err
	}

	params := m.params(destination, cookieFile, opts)

	log.Infof("Starting %s download of %s", m.id, url)
	err = retryDo(retryAttempts, retryDelay, func() error {
		return m.runner.Run(url, params)
	})
	if err != nil {
		return err
	}

	log.Infof("Finished %s download of %s", m.id, id)
	m.confirmSession(cookieFile)
	return nil
}

// resolveCookieFile picks the cookie jar of an invocation: an explicit
// override wins verbatim, a session opt-in resolves the stored jar and
// anything else runs without one.
func (m *Media) resolveCookieFile(opts Options) (string, error) {
	if opts.CookieFile != "" {
		if err := filesystem.API().MkdirAll(filepath.Dir(opts.CookieFile), os.ModePerm); err != nil {
			return "", &TransientError{Err: err}
		}

		return opts.CookieFile, nil
	}

	if opts.UseSession {
		return m.store.CookiePath(m.id), nil
	}

	return "", nil
}

// params merges the computed engine defaults with the caller overrides,
// the overrides always winning.
func (m *Media) params(destination, cookieFile string, opts Options) MediaParams {
	template := m.profile.outputTemplate
	if opts.OutputTemplate != "" {
		template = opts.OutputTemplate
	}

	format := opts.Format
	if format == "" {
		format = viper.GetString(key.DownloadFormat)
	}

	fragments := viper.GetInt(key.DownloadConcurrentFragments)
	if fragments <= 0 {
		fragments = 2
	}

	return MediaParams{
		OutputTemplate:      filepath.Join(destination, template),
		CookieFile:          cookieFile,
		Format:              format,
		ConcurrentFragments: fragments,
		Verbose:             opts.Verbose,
	}
}

// confirmSession checks the cookie jar made it to disk after a
// successful run. Best effort: a missing jar is a warning, never a
// download failure.
func (m *Media) confirmSession(cookieFile string) {
	if cookieFile == "" {
		return
	}

	exists, err := filesystem.API().Exists(cookieFile)
	if err != nil || !exists {
		log.Warnf("Failed to persist session cookies of %s at %s", m.id, cookieFile)
	}
}
