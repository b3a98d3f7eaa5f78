package fetch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/multidl-cli/multidl/downloader"
	"github.com/multidl-cli/multidl/log"
	"github.com/multidl-cli/multidl/network"
)

const defaultInstagramHost = "https://www.instagram.com"

// Instagram drives the platform's private web API through the browser
// fingerprint client: login with the two-factor sub-state, post metadata
// retrieval and media download. It satisfies downloader.InstagramClient.
type Instagram struct {
	client      *http.Client
	host        string
	username    string
	csrf        string
	twoFactorID string
}

func NewInstagram() *Instagram {
	return &Instagram{
		client: network.Browser(lo.Must(cookiejar.New(nil))),
		host:   defaultInstagramHost,
	}
}

type loginReply struct {
	Authenticated     bool   `json:"authenticated"`
	Status            string `json:"status"`
	Message           string `json:"message"`
	TwoFactorRequired bool   `json:"two_factor_required"`
	TwoFactorInfo     struct {
		Identifier string `json:"two_factor_identifier"`
	} `json:"two_factor_info"`
}

// Login authenticates with the browser-style enc_password scheme. A
// pending second factor surfaces as downloader.ErrTwoFactorRequired.
func (c *Instagram) Login(username, password string) error {
	if err := c.bootstrap(); err != nil {
		return err
	}
	c.username = username

	form := url.Values{
		"username":     {username},
		"enc_password": {fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), password)},
		"queryParams":  {"{}"},
		"optIntoOneTap": {"false"},
	}

	reply, err := c.loginRequest("/accounts/login/ajax/", form)
	if err != nil {
		return err
	}

	if reply.TwoFactorRequired {
		c.twoFactorID = reply.TwoFactorInfo.Identifier
		return downloader.ErrTwoFactorRequired
	}

	if !reply.Authenticated {
		if reply.Message != "" {
			return fmt.Errorf("login rejected: %s", reply.Message)
		}

		return fmt.Errorf("login rejected for %s", username)
	}

	log.Infof("Logged into Instagram as %s", username)
	return nil
}

// TwoFactorLogin finishes a login held up by a second-factor challenge.
func (c *Instagram) TwoFactorLogin(code string) error {
	if c.twoFactorID == "" {
		return errors.New("no pending two-factor challenge")
	}

	form := url.Values{
		"username":         {c.username},
		"verificationCode": {code},
		"identifier":       {c.twoFactorID},
	}

	reply, err := c.loginRequest("/accounts/login/ajax/two_factor/", form)
	if err != nil {
		return err
	}

	if !reply.Authenticated {
		return fmt.Errorf("two-factor login rejected: %s", reply.Status)
	}

	c.twoFactorID = ""
	log.Infof("Logged into Instagram as %s", c.username)
	return nil
}

func (c *Instagram) loginRequest(endpoint string, form url.Values) (loginReply, error) {
	var reply loginReply

	resp, err := c.postForm(endpoint, form)
	if err != nil {
		return reply, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return reply, fmt.Errorf("unexpected login response: %w", err)
	}

	// The login endpoint rotates the csrf token on success.
	c.csrf = c.cookie("csrftoken")
	return reply, nil
}

// bootstrap primes the cookie jar with a csrf token.
func (c *Instagram) bootstrap() error {
	if c.csrf != "" {
		return nil
	}

	resp, err := c.client.Get(c.host + "/")
	if err != nil {
		return err
	}
	resp.Body.Close()

	c.csrf = c.cookie("csrftoken")
	if c.csrf == "" {
		return errors.New("instagram issued no csrf token")
	}

	return nil
}

func (c *Instagram) cookie(name string) string {
	target := lo.Must(url.Parse(c.host))
	for _, cookie := range c.client.Jar.Cookies(target) {
		if cookie.Name == name {
			return cookie.Value
		}
	}

	return ""
}

func (c *Instagram) postForm(endpoint string, form url.Values) (*http.Response, error) {
	req, err := network.NewRequest(http.MethodPost, c.host+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRFToken", c.csrf)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Referer", c.host+"/accounts/login/")

	return c.client.Do(req)
}

type postItem struct {
	VideoVersions []mediaVersion `json:"video_versions"`
	ImageVersions struct {
		Candidates []mediaVersion `json:"candidates"`
	} `json:"image_versions2"`
	CarouselMedia []postItem `json:"carousel_media"`
}

type mediaVersion struct {
	URL string `json:"url"`
}

// mediaURLs flattens a post into its downloadable media, one url per
// carousel entry, video preferred over stills.
func (item postItem) mediaURLs() []string {
	if len(item.CarouselMedia) > 0 {
		return lo.FlatMap(item.CarouselMedia, func(entry postItem, _ int) []string {
			return entry.mediaURLs()
		})
	}

	if len(item.VideoVersions) > 0 {
		return []string{item.VideoVersions[0].URL}
	}

	if len(item.ImageVersions.Candidates) > 0 {
		return []string{item.ImageVersions.Candidates[0].URL}
	}

	return nil
}

// DownloadPost fetches the post metadata and saves every media entry
// under a directory named after the shortcode.
func (c *Instagram) DownloadPost(shortcode, destination string) error {
	item, err := c.postInfo(shortcode)
	if err != nil {
		return err
	}

	urls := item.mediaURLs()
	if len(urls) == 0 {
		return fmt.Errorf("post %s holds no downloadable media", shortcode)
	}

	target := filepath.Join(destination, shortcode)
	for n, mediaURL := range urls {
		name := fmt.Sprintf("%s_%d%s", shortcode, n+1, mediaExt(mediaURL))
		if err := c.saveMedia(mediaURL, target, name); err != nil {
			return err
		}
	}

	log.Infof("Downloaded Instagram post %s", shortcode)
	return nil
}

func (c *Instagram) postInfo(shortcode string) (postItem, error) {
	var post struct {
		Items []postItem `json:"items"`
	}

	req, err := network.NewRequest(http.MethodGet, c.host+"/p/"+shortcode+"/?__a=1&__d=dis", nil)
	if err != nil {
		return postItem{}, err
	}
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return postItem{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return postItem{}, fmt.Errorf("post %s not found", shortcode)
	case resp.StatusCode != http.StatusOK:
		return postItem{}, fmt.Errorf("instagram returned %s for post %s", resp.Status, shortcode)
	case strings.Contains(resp.Header.Get("Content-Type"), "text/html"):
		// Anonymous access ran into the wall, only a login gets past it.
		return postItem{}, fmt.Errorf("login required to view post %s", shortcode)
	}

	if err := json.NewDecoder(resp.Body).Decode(&post); err != nil {
		return postItem{}, fmt.Errorf("unexpected post response: %w", err)
	}

	if len(post.Items) == 0 {
		return postItem{}, fmt.Errorf("post %s holds no items", shortcode)
	}

	return post.Items[0], nil
}

func (c *Instagram) saveMedia(mediaURL, destination, name string) error {
	resp, err := c.client.Get(mediaURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("media fetch returned %s", resp.Status)
	}

	_, err = save(destination, name, resp.Body)
	return err
}

func mediaExt(mediaURL string) string {
	parsed, err := url.Parse(mediaURL)
	if err != nil {
		return ".bin"
	}

	if ext := path.Ext(parsed.Path); ext != "" {
		return ext
	}

	return ".bin"
}

type sessionState struct {
	Username string          `json:"username"`
	Cookies  []sessionCookie `json:"cookies"`
}

type sessionCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path"`
	Domain  string    `json:"domain"`
	Expires time.Time `json:"expires"`
}

// ExportSession serializes the cookie jar so a later run can resume the
// login without credentials.
func (c *Instagram) ExportSession() ([]byte, error) {
	target := lo.Must(url.Parse(c.host))

	cookies := lo.Map(c.client.Jar.Cookies(target), func(cookie *http.Cookie, _ int) sessionCookie {
		return sessionCookie{
			Name:    cookie.Name,
			Value:   cookie.Value,
			Path:    "/",
			Domain:  ".instagram.com",
			Expires: time.Now().AddDate(0, 6, 0),
		}
	})

	if len(cookies) == 0 {
		return nil, errors.New("no session cookies to export")
	}

	return json.MarshalIndent(sessionState{Username: c.username, Cookies: cookies}, "", "  ")
}

// RestoreSession rehydrates an exported cookie jar.
func (c *Instagram) RestoreSession(username string, data []byte) error {
	var state sessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}

	if len(state.Cookies) == 0 {
		return errors.New("session holds no cookies")
	}

	target := lo.Must(url.Parse(c.host))
	c.client.Jar.SetCookies(target, lo.Map(state.Cookies, func(cookie sessionCookie, _ int) *http.Cookie {
		return &http.Cookie{
			Name:    cookie.Name,
			Value:   cookie.Value,
			Path:    cookie.Path,
			Domain:  cookie.Domain,
			Expires: cookie.Expires,
		}
	}))

	c.username = username
	c.csrf = c.cookie("csrftoken")
	return nil
}
