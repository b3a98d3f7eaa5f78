// Package history tracks completed downloads in a disk-backed registry.
package history

import (
	"time"

	"github.com/metafates/gache"
	"github.com/spf13/viper"

	"github.com/multidl-cli/multidl/filesystem"
	"github.com/multidl-cli/multidl/key"
	"github.com/multidl-cli/multidl/source"
	"github.com/multidl-cli/multidl/where"
)

// SavedDownload is a single completed download record.
type SavedDownload struct {
	Source       string    `json:"source"`
	URL          string    `json:"url"`
	Destination  string    `json:"destination"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// cacher provides the disk-backed registry of completed downloads.
var cacher = gache.New[map[string]*SavedDownload](
	&gache.Options{
		Path:       where.History(),
		FileSystem: &filesystem.GacheFs{},
	},
)

// Get returns every saved download record keyed by url.
func Get() (map[string]*SavedDownload, error) {
	cached, expired, err := cacher.Get()
	if err != nil {
		return nil, err
	}
	if expired || cached == nil {
		return make(map[string]*SavedDownload), nil
	}
	return cached, nil
}

// Save records a completed download. Downloading a url again simply
// overwrites its previous record. The history.save_on_download key turns
// recording off entirely.
func Save(id source.ID, url, destination string) error {
	if !viper.GetBool(key.HistorySaveOnDownload) {
		return nil
	}

	saved, err := Get()
	if err != nil {
		return err
	}

	saved[url] = &SavedDownload{
		Source:       id.String(),
		URL:          url,
		Destination:  destination,
		DownloadedAt: time.Now(),
	}

	return cacher.Set(saved)
}

// Remove deletes one record from the registry.
func Remove(url string) error {
	saved, err := Get()
	if err != nil {
		return err
	}

	delete(saved, url)
	return cacher.Set(saved)
}
