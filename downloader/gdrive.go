package downloader

import (
	"regexp"

	"github.com/multidl-cli/multidl/auth"
	"github.com/multidl-cli/multidl/log"
	"github.com/multidl-cli/multidl/source"
	"github.com/multidl-cli/multidl/util"
)

// DriveFetcher is the backend collaborator of the Google Drive handler.
type DriveFetcher interface {
	File(id, destination string) error
	Folder(id, destination string) error
	AuthenticatedFile(id, destination, token string) error
}

type driveKind int

const (
	driveFile driveKind = iota
	driveFolder
)

var (
	driveFilePattern   = regexp.MustCompile(`(?:/d/|id=)(?P<id>[\w-]+)`)
	driveFolderPattern = regexp.MustCompile(`(?:folders/|folderview\?id=)(?P<id>[\w-]+)`)
	driveUcPattern     = regexp.MustCompile(`uc\?id=(?P<id>[\w-]+)`)
)

// parseDriveURL extracts the file or folder id of a share url, trying
// the file form, then the folder form, then the direct download form.
func parseDriveURL(url string) (string, driveKind, bool) {
	if id := util.ReGroups(driveFilePattern, url)["id"]; id != "" {
		return id, driveFile, true
	}

	if id := util.ReGroups(driveFolderPattern, url)["id"]; id != "" {
		return id, driveFolder, true
	}

	if id := util.ReGroups(driveUcPattern, url)["id"]; id != "" {
		return id, driveFile, true
	}

	return "", driveFile, false
}

// Drive downloads Google Drive files and folders. Folders always go
// through the public path; files honor the requested method.
type Drive struct {
	fetcher DriveFetcher
}

func NewDrive(fetcher DriveFetcher) *Drive {
	return &Drive{fetcher: fetcher}
}

func (d *Drive) Download(url, destination string, opts Options) error {
	id, kind, ok := parseDriveURL(url)
	if !ok {
		return &InvalidInputError{URL: url, Reason: "no file or folder id found"}
	}

	if kind == driveFolder {
		log.Infof("Starting Google Drive folder download of %s", id)
		if err := d.fetcher.Folder(id, destination); err != nil {
			return &TransientError{Err: err}
		}

		return nil
	}

	if opts.Method == MethodAuthenticated {
		token := d.token(opts)
		if token == "" {
			return &AuthRequiredError{}
		}

		log.Infof("Starting authenticated Google Drive download of %s", id)
		return retryDo(retryAttempts, retryDelay, func() error {
			return d.fetcher.AuthenticatedFile(id, destination, token)
		})
	}

	log.Infof("Starting public Google Drive download of %s", id)
	if err := d.fetcher.File(id, destination); err != nil {
		return &TransientError{Err: err}
	}

	return nil
}

// token resolves the bearer token of an authenticated download,
// preferring an explicit credential over the keyring.
func (d *Drive) token(opts Options) string {
	if token, ok := opts.Credential.(string); ok && token != "" {
		return token
	}

	token, err := auth.GetToken(source.GoogleDrive)
	if err != nil {
		return ""
	}

	return token
}

// Authenticate runs the access token paste flow, persisting the token
// to the system keyring. An empty paste aborts without an error.
func (d *Drive) Authenticate(prompter auth.Prompter) (any, error) {
	if token, err := auth.GetToken(source.GoogleDrive); err == nil && token != "" {
		return token, nil
	}

	token, err := prompter.Password("Google Drive access token:")
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, nil
	}

	if err := auth.SetToken(source.GoogleDrive, token); err != nil {
		return nil, err
	}

	return token, nil
}
