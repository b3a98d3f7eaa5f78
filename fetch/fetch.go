// Package fetch implements the network-facing collaborators the source
// handlers delegate retrieval to: the yt-dlp engine binding, the Google
// Drive client and the Instagram web client.
package fetch

import (
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/multidl-cli/multidl/filesystem"
	"github.com/multidl-cli/multidl/util"
)

// save streams a response body into destination under a sanitized name,
// creating the directory as needed, and returns the path written.
func save(destination, name string, body io.Reader) (string, error) {
	if err := filesystem.API().MkdirAll(destination, os.ModePerm); err != nil {
		return "", err
	}

	path := filepath.Join(destination, util.SanitizeFilename(name))

	file, err := filesystem.API().Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := io.Copy(file, body); err != nil {
		return "", err
	}

	return path, nil
}

// headerFilename extracts the attachment name of a response, falling
// back when the header is missing or malformed.
func headerFilename(resp *http.Response, fallback string) string {
	_, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition"))
	if err == nil && params["filename"] != "" {
		return params["filename"]
	}

	return fallback
}
