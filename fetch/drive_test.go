package fetch

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/samber/lo"

	"github.com/multidl-cli/multidl/filesystem"
)

func init() {
	filesystem.SetMemMapFs()
}

func testDrive(srv *httptest.Server) *Drive {
	return &Drive{
		client:  &http.Client{Jar: lo.Must(cookiejar.New(nil))},
		host:    srv.URL,
		apiHost: srv.URL,
	}
}

func TestConfirmURL(t *testing.T) {
	Convey("Given the virus-scan warning page", t, func() {
		page := []byte(`<form action="https://drive.usercontent.google.com/download" method="get">
			<input type="hidden" name="id" value="1aB">
			<input type="hidden" name="export" value="download">
			<input type="hidden" name="confirm" value="t">
			<input type="hidden" name="uuid" value="u-1"></form>`)

		Convey("The direct download url should be rebuilt from the form", func() {
			confirmed, ok := confirmURL(page)

			So(ok, ShouldBeTrue)
			So(confirmed, ShouldStartWith, "https://drive.usercontent.google.com/download?")
			So(confirmed, ShouldContainSubstring, "confirm=t")
			So(confirmed, ShouldContainSubstring, "id=1aB")
			So(confirmed, ShouldContainSubstring, "uuid=u-1")
		})
	})

	Convey("Given a page without a download form", t, func() {
		Convey("Nothing should be rebuilt", func() {
			_, ok := confirmURL([]byte(`<html><body>Quota exceeded</body></html>`))

			So(ok, ShouldBeFalse)
		})
	})
}

func TestDriveFile(t *testing.T) {
	Convey("Given a file served directly", t, func() {
		filesystem.SetMemMapFs()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("Content-Disposition", `attachment; filename="report.pdf"`)
			fmt.Fprint(w, "content")
		}))
		defer srv.Close()

		Convey("It should be saved under its attachment name", func() {
			So(testDrive(srv).File("1aB", "/out"), ShouldBeNil)

			data, err := filesystem.API().ReadFile("/out/report.pdf")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "content")
		})
	})

	Convey("Given a file behind the warning page", t, func() {
		filesystem.SetMemMapFs()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/confirmed" {
				w.Header().Set("Content-Type", "application/octet-stream")
				fmt.Fprint(w, "big file")
				return
			}

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, `<form action="http://%s/confirmed"><input type="hidden" name="confirm" value="t"></form>`, r.Host)
		}))
		defer srv.Close()

		Convey("The confirm form should be followed", func() {
			So(testDrive(srv).File("1aB", "/out"), ShouldBeNil)

			data, err := filesystem.API().ReadFile("/out/1aB")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "big file")
		})
	})

	Convey("Given a quota-limited file", t, func() {
		filesystem.SetMemMapFs()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body>Too many users have viewed or downloaded this file recently.</body></html>`)
		}))
		defer srv.Close()

		Convey("The download should fail with a readable message", func() {
			err := testDrive(srv).File("1aB", "/out")

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "not downloadable")
		})
	})
}

func TestDriveFolder(t *testing.T) {
	Convey("Given a folder listing two files", t, func() {
		filesystem.SetMemMapFs()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/embeddedfolderview" {
				w.Header().Set("Content-Type", "text/html")
				fmt.Fprint(w, `<a href="https://drive.google.com/file/d/file_one/view"></a>
					<a href="https://drive.google.com/file/d/file_two/view"></a>`)
				return
			}

			w.Header().Set("Content-Type", "application/octet-stream")
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.bin"`, r.URL.Query().Get("id")))
			fmt.Fprint(w, "data")
		}))
		defer srv.Close()

		Convey("Every listed file should be downloaded", func() {
			So(testDrive(srv).Folder("1Dir", "/out"), ShouldBeNil)

			for _, name := range []string{"/out/file_one.bin", "/out/file_two.bin"} {
				exists, err := filesystem.API().Exists(name)
				So(err, ShouldBeNil)
				So(exists, ShouldBeTrue)
			}
		})
	})

	Convey("Given an empty folder", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><body></body></html>`)
		}))
		defer srv.Close()

		Convey("The download should succeed with nothing to do", func() {
			So(testDrive(srv).Folder("1Dir", "/out"), ShouldBeNil)
		})
	})
}

func TestDriveAuthenticatedFile(t *testing.T) {
	Convey("Given the drive api", t, func() {
		filesystem.SetMemMapFs()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer token-123" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if r.URL.Query().Get("alt") == "media" {
				fmt.Fprint(w, "secret bytes")
				return
			}

			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"name": "Quarterly Report.xlsx"}`)
		}))
		defer srv.Close()

		Convey("A valid token should fetch the file under its api name", func() {
			So(testDrive(srv).AuthenticatedFile("1aB", "/out", "token-123"), ShouldBeNil)

			data, err := filesystem.API().ReadFile("/out/Quarterly_Report.xlsx")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "secret bytes")
		})

		Convey("A rejected token should fail with an auth-shaped message", func() {
			err := testDrive(srv).AuthenticatedFile("1aB", "/out", "wrong")

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "authentication rejected")
		})
	})
}
