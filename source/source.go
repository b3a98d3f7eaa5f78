package source

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// ID identifies a media source known to the dispatcher.
type ID int

const (
	GoogleDrive ID = iota + 1
	Instagram
	Threads
	TikTok
	Twitter
	Reddit
	Facebook
	YouTube
)

var names = map[ID]string{
	GoogleDrive: "Google Drive",
	Instagram:   "Instagram",
	Threads:     "Threads",
	TikTok:      "TikTok",
	Twitter:     "Twitter",
	Reddit:      "Reddit",
	Facebook:    "Facebook",
	YouTube:     "YouTube",
}

func (id ID) String() string {
	return names[id]
}

// Key is the canonical lowercase form used for config keys,
// session namespaces and command line arguments.
func (id ID) Key() string {
	return strings.ToLower(strings.ReplaceAll(names[id], " ", ""))
}

// All returns every known source in declaration order.
func All() []ID {
	return []ID{
		GoogleDrive,
		Instagram,
		Threads,
		TikTok,
		Twitter,
		Reddit,
		Facebook,
		YouTube,
	}
}

// FromString matches a user supplied name against the known sources.
// Both the display name and the canonical key are accepted, case
// insensitively.
func FromString(name string) mo.Option[ID] {
	needle := strings.ToLower(strings.TrimSpace(name))
	for _, id := range All() {
		if needle == strings.ToLower(id.String()) || needle == id.Key() {
			return mo.Some(id)
		}
	}

	return mo.None[ID]()
}

// Suggest fuzzy-matches a misspelled source name against the known
// sources and returns the closest one, if any ranks at all.
func Suggest(name string) mo.Option[ID] {
	keys := lo.Map(All(), func(id ID, _ int) string {
		return id.Key()
	})

	matches := fuzzy.RankFindNormalizedFold(strings.ToLower(name), keys)
	if len(matches) == 0 {
		return mo.None[ID]()
	}

	best := lo.MinBy(matches, func(a, b fuzzy.Rank) bool {
		return a.Distance < b.Distance
	})

	return FromString(best.Target)
}
