package batch

import (
	"errors"
	"testing"

	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/time/rate"

	"github.com/multidl-cli/multidl/downloader"
	"github.com/multidl-cli/multidl/filesystem"
	"github.com/multidl-cli/multidl/source"
)

func init() {
	filesystem.SetMemMapFs()
}

type dispatchCall struct {
	url         string
	destination string
	opts        downloader.Options
}

type fakeHandler struct {
	calls []dispatchCall
	err   error
}

func (h *fakeHandler) Download(url, destination string, opts downloader.Options) error {
	h.calls = append(h.calls, dispatchCall{url: url, destination: destination, opts: opts})
	return h.err
}

func testRegistry(handlers map[source.ID]*fakeHandler) *downloader.Registry {
	registry := downloader.NewRegistry()
	for id, handler := range handlers {
		registry.Add(id, handler)
	}

	return registry
}

func TestExecuteAdmission(t *testing.T) {
	Convey("Given six items with one unsupported and two from the same source", t, func() {
		handlers := map[source.ID]*fakeHandler{
			source.Twitter:   {},
			source.YouTube:   {},
			source.Instagram: {},
			source.Reddit:    {},
		}

		items := []ManifestItem{
			{URL: "https://twitter.com/a/status/1"},
			{URL: "https://twitter.com/b/status/2"},
			{URL: "https://example.com/video"},
			{URL: "https://youtu.be/abc123xyz"},
			{SourceHint: "instagram", URL: "https://instagram.com/p/Cxyz/"},
			{URL: "https://www.reddit.com/r/videos/comments/q1a2b3/title/"},
		}

		Convey("A per-source limit of one should admit four items", func() {
			result := Execute(items, &Options{
				Destination:    "/downloads",
				PerSourceLimit: mo.Some(1),
				Registry:       testRegistry(handlers),
			})

			So(result.Attempted, ShouldEqual, 4)
			So(result.Skipped, ShouldHaveLength, 2)
			So(result.Skipped[0].URL, ShouldEqual, "https://example.com/video")
			So(result.Skipped[0].Reason, ShouldEqual, ReasonUnsupported)
			So(result.Skipped[1].URL, ShouldEqual, "https://twitter.com/b/status/2")
			So(result.Skipped[1].Reason, ShouldEqual, ReasonPerSourceLimit)
			So(result.Completed, ShouldHaveLength, 4)
			So(result.Ok(), ShouldBeTrue)
		})

		Convey("A global limit of zero should still report unsupported items as unsupported", func() {
			result := Execute(items, &Options{
				Destination: "/downloads",
				Limit:       mo.Some(0),
				Registry:    testRegistry(handlers),
			})

			So(result.Attempted, ShouldEqual, 0)
			So(result.Completed, ShouldBeEmpty)
			So(result.Skipped, ShouldHaveLength, 6)
			for _, skip := range result.Skipped {
				if skip.URL == "https://example.com/video" {
					So(skip.Reason, ShouldEqual, ReasonUnsupported)
				} else {
					So(skip.Reason, ShouldEqual, ReasonGlobalLimit)
				}
			}
		})

		Convey("A global limit should cut off admission once reached", func() {
			result := Execute(items, &Options{
				Destination: "/downloads",
				Limit:       mo.Some(2),
				Registry:    testRegistry(handlers),
			})

			So(result.Attempted, ShouldEqual, 2)
			So(result.Completed[0].URL, ShouldEqual, "https://twitter.com/a/status/1")
			So(result.Completed[1].URL, ShouldEqual, "https://twitter.com/b/status/2")
		})
	})

	Convey("Given a source without a registered handler", t, func() {
		registry := testRegistry(map[source.ID]*fakeHandler{source.Twitter: {}})

		Convey("A resolvable item should still be skipped as unsupported", func() {
			result := Execute([]ManifestItem{{URL: "https://youtu.be/abc123xyz"}}, &Options{
				Registry: registry,
			})

			So(result.Attempted, ShouldEqual, 0)
			So(result.Skipped, ShouldHaveLength, 1)
			So(result.Skipped[0].Reason, ShouldEqual, ReasonUnsupported)
		})
	})
}

func TestExecuteOptions(t *testing.T) {
	Convey("Given one handler per source kind", t, func() {
		handlers := map[source.ID]*fakeHandler{
			source.Instagram:   {},
			source.Facebook:    {},
			source.GoogleDrive: {},
		}

		items := []ManifestItem{
			{URL: "https://instagram.com/p/Cxyz/"},
			{URL: "https://facebook.com/someone/videos/42"},
			{URL: "https://drive.google.com/file/d/1aB/view"},
		}

		Convey("Each admitted item should carry its source's option defaults", func() {
			result := Execute(items, &Options{
				Destination: "/downloads",
				Verbose:     true,
				Registry:    testRegistry(handlers),
			})

			So(result.Attempted, ShouldEqual, 3)

			instagram := handlers[source.Instagram].calls[0]
			So(instagram.opts.Auth, ShouldEqual, downloader.AuthAuto)
			So(instagram.opts.UseSession, ShouldBeFalse)

			facebook := handlers[source.Facebook].calls[0]
			So(facebook.opts.Auth, ShouldBeEmpty)
			So(facebook.opts.UseSession, ShouldBeTrue)

			drive := handlers[source.GoogleDrive].calls[0]
			So(drive.opts.Auth, ShouldBeEmpty)
			So(drive.opts.UseSession, ShouldBeFalse)

			for _, handler := range handlers {
				So(handler.calls[0].destination, ShouldEqual, "/downloads")
				So(handler.calls[0].opts.Verbose, ShouldBeTrue)
			}
		})
	})
}

func TestExecuteOutcomes(t *testing.T) {
	Convey("Given a failing handler next to a working one", t, func() {
		failing := &fakeHandler{err: errors.New("wire snapped")}
		working := &fakeHandler{}
		registry := testRegistry(map[source.ID]*fakeHandler{
			source.Twitter: failing,
			source.YouTube: working,
		})

		items := []ManifestItem{
			{URL: "https://twitter.com/a/status/1"},
			{URL: "https://youtu.be/abc123xyz"},
		}

		Convey("The failure should be recorded and the batch should go on", func() {
			result := Execute(items, &Options{Destination: "/downloads", Registry: registry})

			So(result.Attempted, ShouldEqual, 2)
			So(result.Errors, ShouldHaveLength, 1)
			So(result.Errors[0].Source, ShouldEqual, source.Twitter.String())
			So(result.Errors[0].URL, ShouldEqual, "https://twitter.com/a/status/1")
			So(result.Errors[0].Message, ShouldContainSubstring, "wire snapped")
			So(result.Skipped, ShouldBeEmpty)
			So(result.Completed, ShouldHaveLength, 1)
			So(result.Ok(), ShouldBeFalse)
			So(working.calls, ShouldHaveLength, 1)
		})

		Convey("The completion hook should fire for successes only", func() {
			var completed []string
			result := Execute(items, &Options{
				Destination: "/downloads",
				Registry:    registry,
				OnComplete: func(id source.ID, url string) {
					completed = append(completed, url)
				},
			})

			So(result.Attempted, ShouldEqual, 2)
			So(completed, ShouldResemble, []string{"https://youtu.be/abc123xyz"})
		})
	})

	Convey("Given a dry run", t, func() {
		handler := &fakeHandler{err: errors.New("must never run")}
		registry := testRegistry(map[source.ID]*fakeHandler{source.Twitter: handler})

		Convey("Admitted items should complete without touching any handler", func() {
			result := Execute([]ManifestItem{{URL: "https://twitter.com/a/status/1"}}, &Options{
				Destination: "/downloads",
				DryRun:      true,
				Registry:    registry,
			})

			So(result.Attempted, ShouldEqual, 1)
			So(result.Completed, ShouldHaveLength, 1)
			So(result.Errors, ShouldBeEmpty)
			So(handler.calls, ShouldBeEmpty)
		})
	})

	Convey("Given a throttle", t, func() {
		handler := &fakeHandler{}
		registry := testRegistry(map[source.ID]*fakeHandler{source.Twitter: handler})

		Convey("The batch should pace through it and still finish", func() {
			result := Execute([]ManifestItem{
				{URL: "https://twitter.com/a/status/1"},
				{URL: "https://twitter.com/b/status/2"},
			}, &Options{
				Destination: "/downloads",
				Registry:    registry,
				Throttle:    rate.NewLimiter(rate.Inf, 1),
			})

			So(result.Attempted, ShouldEqual, 2)
			So(handler.calls, ShouldHaveLength, 2)
		})
	})
}
