package batch

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/multidl-cli/multidl/filesystem"
)

func TestDetectFormat(t *testing.T) {
	Convey("Given manifest file names", t, func() {
		Convey("Known extensions should map to their format", func() {
			for path, format := range map[string]Format{
				"items.json":      FormatJSON,
				"items.csv":       FormatCSV,
				"items.yaml":      FormatYAML,
				"items.yml":       FormatYAML,
				"DIR/Items.JSON":  FormatJSON,
				"/a/b/c/list.Yml": FormatYAML,
			} {
				detected, err := DetectFormat(path)
				So(err, ShouldBeNil)
				So(detected, ShouldEqual, format)
			}
		})

		Convey("An unknown extension should be rejected", func() {
			_, err := DetectFormat("items.txt")

			So(err, ShouldNotBeNil)
		})
	})
}

func TestParseManifestJSON(t *testing.T) {
	Convey("Given the object form", t, func() {
		manifest := `{
			"youtube": ["https://youtu.be/one", "https://youtu.be/two"],
			"twitter": {"items": ["https://twitter.com/a/status/1"]},
			"reddit": "https://redd.it/abc"
		}`

		Convey("Items should come out in key order with their hints", func() {
			items, err := ParseManifest(strings.NewReader(manifest), FormatJSON)

			So(err, ShouldBeNil)
			So(items, ShouldResemble, []ManifestItem{
				{SourceHint: "youtube", URL: "https://youtu.be/one"},
				{SourceHint: "youtube", URL: "https://youtu.be/two"},
				{SourceHint: "twitter", URL: "https://twitter.com/a/status/1"},
				{SourceHint: "reddit", URL: "https://redd.it/abc"},
			})
		})
	})

	Convey("Given the array form", t, func() {
		manifest := `[
			{"url": "https://youtu.be/one", "source": "youtube"},
			{"url": "https://twitter.com/a/status/1"}
		]`

		Convey("Entries should keep their order and optional hints", func() {
			items, err := ParseManifest(strings.NewReader(manifest), FormatJSON)

			So(err, ShouldBeNil)
			So(items, ShouldResemble, []ManifestItem{
				{SourceHint: "youtube", URL: "https://youtu.be/one"},
				{URL: "https://twitter.com/a/status/1"},
			})
		})
	})

	Convey("Given messy entries", t, func() {
		manifest := `{"youtube": ["  https://youtu.be/one  ", "", "   "]}`

		Convey("Urls should be trimmed and empty ones dropped", func() {
			items, err := ParseManifest(strings.NewReader(manifest), FormatJSON)

			So(err, ShouldBeNil)
			So(items, ShouldResemble, []ManifestItem{
				{SourceHint: "youtube", URL: "https://youtu.be/one"},
			})
		})
	})

	Convey("Given malformed input", t, func() {
		Convey("A scalar document should be rejected", func() {
			_, err := ParseManifest(strings.NewReader(`"just a string"`), FormatJSON)

			So(err, ShouldNotBeNil)
		})

		Convey("An unusable entry value should be rejected", func() {
			_, err := ParseManifest(strings.NewReader(`{"youtube": 42}`), FormatJSON)

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "youtube")
		})

		Convey("Truncated json should be rejected", func() {
			_, err := ParseManifest(strings.NewReader(`{"youtube": ["https://`), FormatJSON)

			So(err, ShouldNotBeNil)
		})
	})
}

func TestParseManifestCSV(t *testing.T) {
	Convey("Given rows with a comma-separated items column", t, func() {
		manifest := "source,items\n" +
			`youtube,"https://youtu.be/one, https://youtu.be/two"` + "\n" +
			"twitter,https://twitter.com/a/status/1\n"

		Convey("Each url should become its own item", func() {
			items, err := ParseManifest(strings.NewReader(manifest), FormatCSV)

			So(err, ShouldBeNil)
			So(items, ShouldResemble, []ManifestItem{
				{SourceHint: "youtube", URL: "https://youtu.be/one"},
				{SourceHint: "youtube", URL: "https://youtu.be/two"},
				{SourceHint: "twitter", URL: "https://twitter.com/a/status/1"},
			})
		})
	})

	Convey("Given the long items column name", t, func() {
		manifest := "source,items_comma_separated\nreddit,https://redd.it/abc\n"

		Convey("It should be accepted as the items column", func() {
			items, err := ParseManifest(strings.NewReader(manifest), FormatCSV)

			So(err, ShouldBeNil)
			So(items, ShouldResemble, []ManifestItem{
				{SourceHint: "reddit", URL: "https://redd.it/abc"},
			})
		})
	})

	Convey("Given a header missing the required columns", t, func() {
		Convey("The manifest should be rejected", func() {
			_, err := ParseManifest(strings.NewReader("name,link\na,b\n"), FormatCSV)

			So(err, ShouldNotBeNil)
		})
	})
}

func TestParseManifestYAML(t *testing.T) {
	Convey("Given the mapping form", t, func() {
		manifest := `
youtube:
  - https://youtu.be/one
  - https://youtu.be/two
twitter:
  items:
    - https://twitter.com/a/status/1
reddit: https://redd.it/abc
`

		Convey("Items should come out in mapping order with their hints", func() {
			items, err := ParseManifest(strings.NewReader(manifest), FormatYAML)

			So(err, ShouldBeNil)
			So(items, ShouldResemble, []ManifestItem{
				{SourceHint: "youtube", URL: "https://youtu.be/one"},
				{SourceHint: "youtube", URL: "https://youtu.be/two"},
				{SourceHint: "twitter", URL: "https://twitter.com/a/status/1"},
				{SourceHint: "reddit", URL: "https://redd.it/abc"},
			})
		})
	})

	Convey("Given the sequence form", t, func() {
		manifest := `
- url: https://youtu.be/one
  source: youtube
- url: https://twitter.com/a/status/1
`

		Convey("Entries should keep their order and optional hints", func() {
			items, err := ParseManifest(strings.NewReader(manifest), FormatYAML)

			So(err, ShouldBeNil)
			So(items, ShouldResemble, []ManifestItem{
				{SourceHint: "youtube", URL: "https://youtu.be/one"},
				{URL: "https://twitter.com/a/status/1"},
			})
		})
	})

	Convey("Given an empty document", t, func() {
		Convey("The manifest should be empty, not an error", func() {
			items, err := ParseManifest(strings.NewReader(""), FormatYAML)

			So(err, ShouldBeNil)
			So(items, ShouldBeEmpty)
		})
	})

	Convey("Given a scalar document", t, func() {
		Convey("The manifest should be rejected", func() {
			_, err := ParseManifest(strings.NewReader("just a string"), FormatYAML)

			So(err, ShouldNotBeNil)
		})
	})
}

func TestLoadManifest(t *testing.T) {
	Convey("Given a manifest file on disk", t, func() {
		filesystem.SetMemMapFs()
		path := "/manifests/items.json"
		content := []byte(`{"youtube": ["https://youtu.be/one"]}`)
		So(filesystem.API().WriteFile(path, content, 0644), ShouldBeNil)

		Convey("Loading should parse it", func() {
			items, err := LoadManifest(path, FormatJSON)

			So(err, ShouldBeNil)
			So(items, ShouldHaveLength, 1)
			So(items[0].URL, ShouldEqual, "https://youtu.be/one")
		})
	})

	Convey("Given a missing file", t, func() {
		filesystem.SetMemMapFs()

		Convey("Loading should fail", func() {
			_, err := LoadManifest("/nowhere.json", FormatJSON)

			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given an unknown format", t, func() {
		Convey("Parsing should fail", func() {
			_, err := ParseManifest(strings.NewReader("{}"), Format("toml"))

			So(err, ShouldNotBeNil)
		})
	})
}
