package downloader

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/zalando/go-keyring"

	"github.com/multidl-cli/multidl/filesystem"
	"github.com/multidl-cli/multidl/session"
	"github.com/multidl-cli/multidl/source"
)

func init() {
	filesystem.SetMemMapFs()
	keyring.MockInit()
	retryDelay = time.Millisecond
}

func TestRegistry(t *testing.T) {
	Convey("Given a registry", t, func() {
		store := session.New("/sessions")
		registry := NewRegistry()

		Convey("An unregistered source should not be supported", func() {
			So(registry.Supports(source.Twitter), ShouldBeFalse)

			_, ok := registry.Handler(source.Twitter)
			So(ok, ShouldBeFalse)
		})

		Convey("Adding a plain handler should not grant the authenticator capability", func() {
			registry.Add(source.Twitter, NewMedia(source.Twitter, &fakeRunner{}, store))

			So(registry.Supports(source.Twitter), ShouldBeTrue)

			_, ok := registry.Authenticator(source.Twitter)
			So(ok, ShouldBeFalse)
		})

		Convey("Adding an authenticatable handler should record the capability", func() {
			registry.Add(source.GoogleDrive, NewDrive(&fakeFetcher{}))

			_, ok := registry.Authenticator(source.GoogleDrive)
			So(ok, ShouldBeTrue)
		})

		Convey("Sources should come back in catalogue order", func() {
			registry.Add(source.YouTube, NewMedia(source.YouTube, &fakeRunner{}, store))
			registry.Add(source.GoogleDrive, NewDrive(&fakeFetcher{}))

			So(registry.Sources(), ShouldResemble, []source.ID{source.GoogleDrive, source.YouTube})
		})
	})
}

func TestDefault(t *testing.T) {
	Convey("Given the default registry", t, func() {
		store := session.New("/sessions")
		registry := Default(store, &fakeRunner{}, &fakeFetcher{}, func() InstagramClient {
			return &fakeInstagram{}
		})

		Convey("Every catalogued source should be supported", func() {
			for _, id := range source.All() {
				So(registry.Supports(id), ShouldBeTrue)
			}
		})

		Convey("Only Google Drive and Instagram should be authenticatable", func() {
			for _, id := range source.All() {
				_, ok := registry.Authenticator(id)

				So(ok, ShouldEqual, id == source.GoogleDrive || id == source.Instagram)
			}
		})
	})
}

func TestAuthBlocked(t *testing.T) {
	Convey("Given backend failures", t, func() {
		Convey("Auth-shaped messages should classify as blocked", func() {
			So(authBlocked(errTest("HTTP Error 400: Bad Request")), ShouldBeTrue)
			So(authBlocked(errTest("Login required to access this post")), ShouldBeTrue)
			So(authBlocked(errTest("checkpoint: Authentication failed")), ShouldBeTrue)
		})

		Convey("Ordinary failures should not", func() {
			So(authBlocked(errTest("connection reset by peer")), ShouldBeFalse)
			So(authBlocked(errTest("HTTP Error 503: Service Unavailable")), ShouldBeFalse)
		})
	})
}

type errTest string

func (e errTest) Error() string {
	return string(e)
}

func TestRetryDo(t *testing.T) {
	Convey("Given a flaky operation", t, func() {
		calls := 0

		Convey("A transient failure should be retried up to the budget", func() {
			err := retryDo(retryAttempts, retryDelay, func() error {
				calls++
				return errTest("connection reset by peer")
			})

			So(calls, ShouldEqual, 2)

			var transient *TransientError
			So(err, ShouldHaveSameTypeAs, transient)
		})

		Convey("A failure on the first attempt should still succeed overall", func() {
			err := retryDo(retryAttempts, retryDelay, func() error {
				calls++
				if calls == 1 {
					return errTest("timeout")
				}
				return nil
			})

			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 2)
		})

		Convey("An auth-shaped failure should escalate without a retry", func() {
			err := retryDo(retryAttempts, retryDelay, func() error {
				calls++
				return errTest("login required")
			})

			So(calls, ShouldEqual, 1)

			var authErr *AuthRequiredError
			So(err, ShouldHaveSameTypeAs, authErr)
		})
	})
}
