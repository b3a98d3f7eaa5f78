// Package downloader defines the contract every source handler implements
// and the registry the dispatcher routes admitted items through.
package downloader

import (
	"github.com/samber/lo"

	"github.com/multidl-cli/multidl/auth"
	"github.com/multidl-cli/multidl/session"
	"github.com/multidl-cli/multidl/source"
)

// Instagram authentication modes.
const (
	AuthAuto            = "auto"
	AuthAuthenticated   = "authenticated"
	AuthUnauthenticated = "unauthenticated"
)

// Google Drive retrieval modes.
const (
	MethodPublic        = "public"
	MethodAuthenticated = "authenticated"
)

// Options carries the per-item knobs a handler honors. It is a plain
// value; the dispatcher builds a fresh one for every admitted item and
// handlers never mutate it.
type Options struct {
	// Auth selects the Instagram authentication mode.
	Auth string

	// UseSession opts a cookie-based source into the stored cookie jar.
	UseSession bool

	// Method selects the Google Drive retrieval mode.
	Method string

	// Credential is an opaque pre-authenticated handle passed through to
	// the handler, such as a client restored by Authenticate.
	Credential any

	// CookieFile overrides the stored cookie jar with an explicit path.
	CookieFile string

	// OutputTemplate and Format override the computed engine parameters.
	OutputTemplate string
	Format         string

	Verbose bool
}

// Handler downloads a single url into the destination directory.
type Handler interface {
	Download(url, destination string, opts Options) error
}

// Authenticator is the optional capability of handlers that can run an
// interactive credential flow. A nil handle with a nil error means the
// flow was aborted by the user.
type Authenticator interface {
	Authenticate(prompter auth.Prompter) (any, error)
}

// Registry maps sources to their handlers. The authenticator capability
// is recorded when a handler is added, never probed at call time.
type Registry struct {
	handlers       map[source.ID]Handler
	authenticators map[source.ID]Authenticator
}

func NewRegistry() *Registry {
	return &Registry{
		handlers:       make(map[source.ID]Handler),
		authenticators: make(map[source.ID]Authenticator),
	}
}

// Add registers the handler of a source.
func (r *Registry) Add(id source.ID, handler Handler) *Registry {
	r.handlers[id] = handler
	if authenticator, ok := handler.(Authenticator); ok {
		r.authenticators[id] = authenticator
	}

	return r
}

// Handler looks up the handler of a source.
func (r *Registry) Handler(id source.ID) (Handler, bool) {
	handler, ok := r.handlers[id]
	return handler, ok
}

// Authenticator looks up the authenticator capability of a source.
func (r *Registry) Authenticator(id source.ID) (Authenticator, bool) {
	authenticator, ok := r.authenticators[id]
	return authenticator, ok
}

// Supports reports whether a source has a registered handler.
func (r *Registry) Supports(id source.ID) bool {
	_, ok := r.handlers[id]
	return ok
}

// Sources lists the registered sources in catalogue order.
func (r *Registry) Sources() []source.ID {
	return lo.Filter(source.All(), func(id source.ID, _ int) bool {
		return r.Supports(id)
	})
}

// Default wires the full supported source set against the given
// collaborators.
func Default(store *session.Store, runner MediaRunner, drive DriveFetcher, newInstagram func() InstagramClient) *Registry {
	registry := NewRegistry()

	registry.Add(source.GoogleDrive, NewDrive(drive))
	registry.Add(source.Instagram, NewInstagram(newInstagram, store))

	for _, id := range []source.ID{
		source.Threads,
		source.TikTok,
		source.Twitter,
		source.Reddit,
		source.Facebook,
		source.YouTube,
	} {
		registry.Add(id, NewMedia(id, runner, store))
	}

	return registry
}
