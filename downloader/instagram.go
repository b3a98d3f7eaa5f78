package downloader

import (
	"errors"
	"regexp"
	"strings"

	"github.com/multidl-cli/multidl/auth"
	"github.com/multidl-cli/multidl/log"
	"github.com/multidl-cli/multidl/session"
	"github.com/multidl-cli/multidl/source"
	"github.com/multidl-cli/multidl/util"
)

// ErrTwoFactorRequired marks a login rejected pending a second factor.
// InstagramClient implementations return it, possibly wrapped, so the
// authentication flow can solicit a one-time code.
var ErrTwoFactorRequired = errors.New("two-factor authentication required")

// InstagramClient is the backend collaborator of the Instagram handler.
// A fresh client is anonymous until a login or a session restore.
type InstagramClient interface {
	Login(username, password string) error
	TwoFactorLogin(code string) error
	RestoreSession(username string, data []byte) error
	ExportSession() ([]byte, error)
	DownloadPost(shortcode, destination string) error
}

var shortcodePattern = regexp.MustCompile(`instagram\.com/(?:p|reel|tv)/(?P<shortcode>[\w-]+)`)

// shortcodeOf extracts the post shortcode of a url, stripping the query
// string first so tracking parameters never leak into the match.
func shortcodeOf(url string) (string, bool) {
	trimmed, _, _ := strings.Cut(url, "?")
	shortcode := util.ReGroups(shortcodePattern, trimmed)["shortcode"]
	return shortcode, shortcode != ""
}

// Instagram downloads posts through an InstagramClient, rehydrating a
// stored session when the authentication mode calls for one.
type Instagram struct {
	newClient func() InstagramClient
	store     *session.Store
}

func NewInstagram(newClient func() InstagramClient, store *session.Store) *Instagram {
	return &Instagram{newClient: newClient, store: store}
}

func (i *Instagram) Download(url, destination string, opts Options) error {
	shortcode, ok := shortcodeOf(url)
	if !ok {
		return &InvalidInputError{URL: url, Reason: "no post shortcode found"}
	}

	client, err := i.clientFor(opts)
	if err != nil {
		return err
	}

	log.Infof("Starting Instagram download of %s", shortcode)
	return retryDo(retryAttempts, retryDelay, func() error {
		return client.DownloadPost(shortcode, destination)
	})
}

// clientFor picks the client of an invocation based on the requested
// authentication mode. An explicit pre-authenticated client always wins.
func (i *Instagram) clientFor(opts Options) (InstagramClient, error) {
	if opts.Credential != nil {
		if client, ok := opts.Credential.(InstagramClient); ok {
			return client, nil
		}

		log.Warnf("Ignoring Instagram credential of unexpected type %T", opts.Credential)
	}

	switch opts.Auth {
	case AuthAuthenticated:
		client, ok := i.restore()
		if !ok {
			return nil, &AuthRequiredError{}
		}

		return client, nil
	case AuthUnauthenticated:
		return i.newClient(), nil
	default:
		if client, ok := i.restore(); ok {
			return client, nil
		}

		return i.newClient(), nil
	}
}

// restore rehydrates the stored session into a fresh client. A missing
// or stale artifact degrades to no session.
func (i *Instagram) restore() (InstagramClient, bool) {
	meta, ok := i.store.ReadMeta(source.Instagram).Get()
	if !ok || meta.Filename == "" {
		return nil, false
	}

	data, ok := i.store.ReadBlob(source.Instagram, meta.Filename).Get()
	if !ok {
		return nil, false
	}

	client := i.newClient()
	if err := client.RestoreSession(meta.Username, data); err != nil {
		log.Warnf("Failed to restore Instagram session of %s: %s", meta.Username, err)
		return nil, false
	}

	log.Infof("Restored Instagram session of %s", meta.Username)
	return client, true
}

// Authenticate drives the interactive login flow, including the
// two-factor sub-state, and persists the resulting session. Aborting a
// prompt returns no handle, not an error.
func (i *Instagram) Authenticate(prompter auth.Prompter) (any, error) {
	if client, ok := i.restore(); ok {
		return client, nil
	}

	username, err := prompter.Input("Instagram username:")
	if err != nil {
		return nil, err
	}
	if username == "" {
		return nil, nil
	}

	password, err := prompter.Password("Instagram password:")
	if err != nil {
		return nil, err
	}

	client := i.newClient()
	if err := client.Login(username, password); err != nil {
		if !errors.Is(err, ErrTwoFactorRequired) {
			return nil, err
		}

		code, err := prompter.Input("Two-factor code:")
		if err != nil {
			return nil, err
		}
		if code == "" {
			log.Warn("No two-factor code entered, aborting Instagram login")
			return nil, nil
		}

		if err := client.TwoFactorLogin(code); err != nil {
			return nil, err
		}
	}

	i.persist(client, username)
	return client, nil
}

// persist exports the session into the store. Best effort: a failed
// export never fails a login that already succeeded.
func (i *Instagram) persist(client InstagramClient, username string) {
	data, err := client.ExportSession()
	if err != nil {
		log.Warnf("Failed to export Instagram session of %s: %s", username, err)
		return
	}

	filename := username + ".session"
	if err := i.store.WriteBlob(source.Instagram, filename, data); err != nil {
		log.Warnf("Failed to persist Instagram session of %s: %s", username, err)
		return
	}

	if err := i.store.WriteMeta(source.Instagram, session.Meta{Username: username, Filename: filename}); err != nil {
		log.Warnf("Failed to persist Instagram session metadata of %s: %s", username, err)
	}
}
