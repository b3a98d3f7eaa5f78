package fetch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/multidl-cli/multidl/log"
	"github.com/multidl-cli/multidl/network"
)

const (
	defaultDriveHost = "https://drive.google.com"
	defaultDriveAPI  = "https://www.googleapis.com/drive/v3"
)

// Drive retrieves Google Drive content: public files through the uc
// endpoint with its confirm-form dance, folders through the embedded
// folder view and authenticated files through the Drive API.
type Drive struct {
	client  *http.Client
	host    string
	apiHost string
}

func NewDrive() *Drive {
	return &Drive{
		// No overall timeout, large files stream for minutes. The jar
		// carries the confirm-token cookies between the two requests of
		// the public flow.
		client: &http.Client{
			Transport: network.Client.Transport,
			Jar:       lo.Must(cookiejar.New(nil)),
		},
		host:    defaultDriveHost,
		apiHost: defaultDriveAPI,
	}
}

// File downloads a public file.
func (d *Drive) File(id, destination string) error {
	resp, err := d.fetchPublic(id)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	path, err := save(destination, headerFilename(resp, id), resp.Body)
	if err != nil {
		return err
	}

	log.Infof("Saved Google Drive file %s", path)
	return nil
}

var (
	driveFormAction = regexp.MustCompile(`action="([^"]+)"`)
	driveFormInput  = regexp.MustCompile(`<input type="hidden" name="([^"]+)" value="([^"]*)"`)
)

// confirmURL rebuilds the direct download url from the warning page
// Drive serves for files it will not virus-scan.
func confirmURL(page []byte) (string, bool) {
	action := driveFormAction.FindSubmatch(page)
	if action == nil {
		return "", false
	}

	values := url.Values{}
	for _, input := range driveFormInput.FindAllSubmatch(page, -1) {
		values.Set(string(input[1]), string(input[2]))
	}

	if len(values) == 0 {
		return "", false
	}

	return string(action[1]) + "?" + values.Encode(), true
}

// fetchPublic resolves the download response of a public file, following
// the confirm form when Drive interposes its warning page.
func (d *Drive) fetchPublic(id string) (*http.Response, error) {
	resp, err := d.get(d.host + "/uc?export=download&id=" + id)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("drive returned %s for file %s", resp.Status, id)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		return resp, nil
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
	if err != nil {
		return nil, err
	}

	confirmed, ok := confirmURL(page)
	if !ok {
		return nil, fmt.Errorf("file %s is not downloadable, it may be quota-limited or removed", id)
	}

	resp, err = d.get(confirmed)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK || strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		resp.Body.Close()
		return nil, fmt.Errorf("drive refused the confirmed download of file %s", id)
	}

	return resp, nil
}

var (
	driveFileLink   = regexp.MustCompile(`drive\.google\.com/file/d/([\w-]+)`)
	driveFolderLink = regexp.MustCompile(`drive\.google\.com/drive/folders/([\w-]+)`)
)

// Folder downloads every file of a public folder, recursing into
// subfolders with their ids as directory names.
func (d *Drive) Folder(id, destination string) error {
	resp, err := d.get(d.host + "/embeddedfolderview?id=" + id + "#list")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("drive returned %s for folder %s", resp.Status, id)
	}

	page, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}

	files := lo.Uniq(submatches(driveFileLink, page))
	folders := lo.Uniq(submatches(driveFolderLink, page))

	if len(files) == 0 && len(folders) == 0 {
		log.Infof("Google Drive folder %s is empty", id)
		return nil
	}

	for _, fileID := range files {
		if err := d.File(fileID, destination); err != nil {
			return err
		}
	}

	for _, folderID := range folders {
		if folderID == id {
			continue
		}

		if err := d.Folder(folderID, filepath.Join(destination, folderID)); err != nil {
			return err
		}
	}

	return nil
}

func submatches(pattern *regexp.Regexp, page []byte) []string {
	return lo.Map(pattern.FindAllSubmatch(page, -1), func(match [][]byte, _ int) string {
		return string(match[1])
	})
}

// AuthenticatedFile downloads a file through the Drive API with a bearer
// token, so private files shared with the account resolve too.
func (d *Drive) AuthenticatedFile(id, destination, token string) error {
	name, err := d.apiName(id, token)
	if err != nil {
		return err
	}

	resp, err := d.apiGet(d.apiHost+"/files/"+id+"?alt=media&supportsAllDrives=true", token)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	path, err := save(destination, name, resp.Body)
	if err != nil {
		return err
	}

	log.Infof("Saved Google Drive file %s", path)
	return nil
}

func (d *Drive) apiName(id, token string) (string, error) {
	resp, err := d.apiGet(d.apiHost+"/files/"+id+"?fields=name&supportsAllDrives=true", token)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var meta struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return "", err
	}

	if meta.Name == "" {
		return id, nil
	}

	return meta.Name, nil
}

func (d *Drive) get(url string) (*http.Response, error) {
	req, err := network.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	return d.client.Do(req)
}

func (d *Drive) apiGet(url, token string) (*http.Response, error) {
	req, err := network.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		resp.Body.Close()
		return nil, fmt.Errorf("authentication rejected: %s", resp.Status)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("drive api returned %s", resp.Status)
	}
}
