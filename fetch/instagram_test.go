package fetch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/multidl-cli/multidl/downloader"
	"github.com/multidl-cli/multidl/filesystem"
)

func testInstagram(srv *httptest.Server) *Instagram {
	return &Instagram{
		client: &http.Client{Jar: lo.Must(cookiejar.New(nil))},
		host:   srv.URL,
	}
}

func seedCookies(client *Instagram, values map[string]string) {
	target := lo.Must(url.Parse(client.host))

	cookies := make([]*http.Cookie, 0, len(values))
	for name, value := range values {
		cookies = append(cookies, &http.Cookie{Name: name, Value: value, Path: "/"})
	}

	client.client.Jar.SetCookies(target, cookies)
}

func issueCsrf(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: "csrftoken", Value: "csrf-1", Path: "/"})
}

func TestInstagramLogin(t *testing.T) {
	Convey("Given the login endpoint", t, func() {
		type loginCapture struct {
			csrf string
			form url.Values
		}
		captured := make(chan loginCapture, 1)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/":
				issueCsrf(w)
				fmt.Fprint(w, "<html></html>")
			case "/accounts/login/ajax/":
				_ = r.ParseForm()
				captured <- loginCapture{csrf: r.Header.Get("X-CSRFToken"), form: r.PostForm}
				http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "session-1", Path: "/"})
				fmt.Fprint(w, `{"authenticated": true, "status": "ok"}`)
			}
		}))
		defer srv.Close()

		Convey("A successful login should carry the browser password scheme", func() {
			So(testInstagram(srv).Login("user", "secret"), ShouldBeNil)

			seen := <-captured
			So(seen.csrf, ShouldEqual, "csrf-1")
			So(seen.form.Get("username"), ShouldEqual, "user")
			So(seen.form.Get("enc_password"), ShouldStartWith, "#PWD_INSTAGRAM_BROWSER:0:")
			So(seen.form.Get("enc_password"), ShouldEndWith, ":secret")
		})
	})

	Convey("Given an account with two-factor enabled", t, func() {
		captured := make(chan url.Values, 1)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/":
				issueCsrf(w)
				fmt.Fprint(w, "<html></html>")
			case "/accounts/login/ajax/":
				fmt.Fprint(w, `{"two_factor_required": true, "two_factor_info": {"two_factor_identifier": "tf-9"}}`)
			case "/accounts/login/ajax/two_factor/":
				_ = r.ParseForm()
				captured <- r.PostForm
				fmt.Fprint(w, `{"authenticated": true, "status": "ok"}`)
			}
		}))
		defer srv.Close()

		Convey("The challenge should surface as the two-factor sentinel", func() {
			client := testInstagram(srv)

			So(errors.Is(client.Login("user", "secret"), downloader.ErrTwoFactorRequired), ShouldBeTrue)

			Convey("And the verification code should finish the login", func() {
				So(client.TwoFactorLogin("123456"), ShouldBeNil)

				codeForm := <-captured
				So(codeForm.Get("identifier"), ShouldEqual, "tf-9")
				So(codeForm.Get("verificationCode"), ShouldEqual, "123456")
			})
		})
	})

	Convey("Given rejected credentials", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/" {
				issueCsrf(w)
				fmt.Fprint(w, "<html></html>")
				return
			}

			fmt.Fprint(w, `{"authenticated": false, "status": "fail", "message": "Please check your password"}`)
		}))
		defer srv.Close()

		Convey("The login should fail with the platform message", func() {
			err := testInstagram(srv).Login("user", "wrong")

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "Please check your password")
		})
	})
}

func TestInstagramDownloadPost(t *testing.T) {
	Convey("Given a post with a video", t, func() {
		filesystem.SetMemMapFs()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/p/Cxyz/":
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprintf(w, `{"items": [{"video_versions": [{"url": "http://%s/media/v.mp4"}]}]}`, r.Host)
			case "/media/v.mp4":
				fmt.Fprint(w, "video bytes")
			default:
				http.NotFound(w, r)
			}
		}))
		defer srv.Close()

		Convey("The media should land under the shortcode directory", func() {
			So(testInstagram(srv).DownloadPost("Cxyz", "/out"), ShouldBeNil)

			data, err := filesystem.API().ReadFile("/out/Cxyz/Cxyz_1.mp4")
			So(err, ShouldBeNil)
			So(string(data), ShouldEqual, "video bytes")
		})
	})

	Convey("Given a carousel post", t, func() {
		filesystem.SetMemMapFs()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/p/Cxyz/" {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprintf(w, `{"items": [{"carousel_media": [
					{"image_versions2": {"candidates": [{"url": "http://%s/media/1.jpg"}]}},
					{"video_versions": [{"url": "http://%s/media/2.mp4"}]}
				]}]}`, r.Host, r.Host)
				return
			}

			fmt.Fprint(w, "media")
		}))
		defer srv.Close()

		Convey("Every carousel entry should be downloaded in order", func() {
			So(testInstagram(srv).DownloadPost("Cxyz", "/out"), ShouldBeNil)

			for _, name := range []string{"/out/Cxyz/Cxyz_1.jpg", "/out/Cxyz/Cxyz_2.mp4"} {
				exists, err := filesystem.API().Exists(name)
				So(err, ShouldBeNil)
				So(exists, ShouldBeTrue)
			}
		})
	})

	Convey("Given a post behind the login wall", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html>log in to continue</html>")
		}))
		defer srv.Close()

		Convey("The failure should name the login wall", func() {
			err := testInstagram(srv).DownloadPost("Cxyz", "/out")

			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "login required")
		})
	})
}

func TestInstagramSession(t *testing.T) {
	Convey("Given a logged-in client", t, func() {
		client := &Instagram{
			client:   &http.Client{Jar: lo.Must(cookiejar.New(nil))},
			host:     defaultInstagramHost,
			username: "user",
		}

		Convey("The session should survive an export and restore round trip", func() {
			seedCookies(client, map[string]string{"csrftoken": "csrf-1", "sessionid": "session-1"})

			data, err := client.ExportSession()
			So(err, ShouldBeNil)

			var state sessionState
			So(json.Unmarshal(data, &state), ShouldBeNil)
			So(state.Username, ShouldEqual, "user")
			So(state.Cookies, ShouldNotBeEmpty)

			restored := &Instagram{
				client: &http.Client{Jar: lo.Must(cookiejar.New(nil))},
				host:   defaultInstagramHost,
			}
			So(restored.RestoreSession("user", data), ShouldBeNil)
			So(restored.username, ShouldEqual, "user")
			So(restored.cookie("sessionid"), ShouldEqual, "session-1")
			So(restored.csrf, ShouldEqual, "csrf-1")
		})

		Convey("An empty jar should refuse to export", func() {
			_, err := client.ExportSession()

			So(err, ShouldNotBeNil)
		})

		Convey("Corrupt session data should refuse to restore", func() {
			So(client.RestoreSession("user", []byte("{broken")), ShouldNotBeNil)
		})
	})
}
