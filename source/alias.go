package source

import (
	neturl "net/url"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

type alias struct {
	Pattern string
	Source  ID
}

// aliases is an ordered rule table. Resolution walks it top to bottom
// and the first pattern contained in the subject wins, so the more
// specific Google entries must stay above the generic ones.
var aliases = []alias{
	{"drive.google.com", GoogleDrive},
	{"docs.google.com", GoogleDrive},
	{"googledrive", GoogleDrive},
	{"googleusercontent", GoogleDrive},
	{"instagram", Instagram},
	{"instagr", Instagram},
	{"ddinstagram", Instagram},
	{"threads", Threads},
	{"tiktok", TikTok},
	{"douyin", TikTok},
	{"twitter", Twitter},
	{"x.com", Twitter},
	{"fxtwitter", Twitter},
	{"vxtwitter", Twitter},
	{"reddit", Reddit},
	{"redd.it", Reddit},
	{"facebook", Facebook},
	{"fb.watch", Facebook},
	{"fbcdn", Facebook},
	{"youtube", YouTube},
	{"youtu.be", YouTube},
	{"youtubekids", YouTube},
}

// Match finds the source whose alias occurs first in the rule table as
// a case insensitive substring of the subject.
func Match(subject string) mo.Option[ID] {
	lowered := strings.ToLower(subject)
	for _, a := range aliases {
		if strings.Contains(lowered, a.Pattern) {
			return mo.Some(a.Source)
		}
	}

	return mo.None[ID]()
}

// Resolve routes a single item to a source. A non-empty hint is
// consulted before the URL, so a manifest can pin an item to a source
// its address alone would not reveal. An unrecognized hint falls
// through to the URL rather than failing the item. Only the URL's host
// takes part in matching, so a platform name in a path or query never
// routes; a scheme-less URL has no host and resolves via its hint only.
func Resolve(hint, url string) mo.Option[ID] {
	if hint != "" {
		if id, ok := Match(hint).Get(); ok {
			return mo.Some(id)
		}
	}

	host := hostOf(url)
	if host == "" {
		return mo.None[ID]()
	}

	return Match(host)
}

// hostOf extracts the host component of a url. Unparseable input and
// scheme-less urls, which carry their address in the path under
// net/url semantics, both yield an empty host.
func hostOf(url string) string {
	parsed, err := neturl.Parse(url)
	if err != nil {
		return ""
	}

	return parsed.Host
}

// Aliases lists the rule table patterns of a single source in table
// order.
func Aliases(id ID) []string {
	return lo.FilterMap(aliases, func(a alias, _ int) (string, bool) {
		return a.Pattern, a.Source == id
	})
}
