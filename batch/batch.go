// Package batch drives an ordered manifest of media urls through the
// handler registry, applying global and per-source admission limits and
// aggregating the outcome of every item into a single result.
package batch

import (
	"context"

	"github.com/samber/mo"
	"golang.org/x/time/rate"

	"github.com/multidl-cli/multidl/downloader"
	"github.com/multidl-cli/multidl/log"
	"github.com/multidl-cli/multidl/source"
)

// Skip reasons recorded in Result.Skipped.
const (
	ReasonUnsupported    = "unsupported"
	ReasonGlobalLimit    = "global-limit"
	ReasonPerSourceLimit = "per-source-limit"
)

// Options configures a single batch run.
type Options struct {
	// Destination is the directory every handler downloads into.
	Destination string

	// Limit caps the number of admitted items across the whole batch.
	Limit mo.Option[int]

	// PerSourceLimit caps the number of admitted items per source.
	PerSourceLimit mo.Option[int]

	// DryRun records admitted items as completed without invoking any
	// handler.
	DryRun bool

	Verbose bool

	// Registry maps sources to their handlers.
	Registry *downloader.Registry

	// Throttle, when set, paces handler invocations.
	Throttle *rate.Limiter

	// OnComplete fires after every successful download.
	OnComplete func(id source.ID, url string)
}

// Completion is a downloaded (or dry-run admitted) item.
type Completion struct {
	Source string `json:"source"`
	URL    string `json:"url"`
}

// Skip is an item rejected by admission control. Source carries the raw
// manifest hint since a skipped item may have resolved to nothing.
type Skip struct {
	Source string `json:"source"`
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Failure is an admitted item whose handler returned an error.
type Failure struct {
	Source  string `json:"source"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

// Result aggregates one batch run. Attempted counts only items that
// passed admission control, whether or not they went on to fail.
type Result struct {
	Attempted int          `json:"attempted"`
	Completed []Completion `json:"completed"`
	Skipped   []Skip       `json:"skipped"`
	Errors    []Failure    `json:"errors"`
}

// Ok reports whether the batch finished without handler errors.
func (r *Result) Ok() bool {
	return len(r.Errors) == 0
}

// Execute processes the items strictly in order. Unsupported items never
// charge the limit counters, one failing item never aborts the batch.
func Execute(items []ManifestItem, opts *Options) *Result {
	// Empty slices so the json form renders [] rather than null.
	result := &Result{
		Completed: []Completion{},
		Skipped:   []Skip{},
		Errors:    []Failure{},
	}
	perSource := make(map[source.ID]int)

	for _, item := range items {
		id, ok := source.Resolve(item.SourceHint, item.URL).Get()
		if !ok || !opts.Registry.Supports(id) {
			log.Warnf("No handler for %s, skipping", item.URL)
			result.Skipped = append(result.Skipped, Skip{Source: item.SourceHint, URL: item.URL, Reason: ReasonUnsupported})
			continue
		}

		if limit, set := opts.Limit.Get(); set && result.Attempted >= limit {
			result.Skipped = append(result.Skipped, Skip{Source: item.SourceHint, URL: item.URL, Reason: ReasonGlobalLimit})
			continue
		}

		if limit, set := opts.PerSourceLimit.Get(); set && perSource[id] >= limit {
			result.Skipped = append(result.Skipped, Skip{Source: item.SourceHint, URL: item.URL, Reason: ReasonPerSourceLimit})
			continue
		}

		result.Attempted++
		perSource[id]++

		if opts.DryRun {
			log.Infof("Would download %s from %s", item.URL, id)
			result.Completed = append(result.Completed, Completion{Source: id.String(), URL: item.URL})
			continue
		}

		if opts.Throttle != nil {
			// Background context, a batch has no cancellation path.
			_ = opts.Throttle.Wait(context.Background())
		}

		log.Debugf("Dispatching %s to the %s handler", item.URL, id)
		handler, _ := opts.Registry.Handler(id)
		if err := handler.Download(item.URL, opts.Destination, opts.itemOptions(id)); err != nil {
			log.Errorf("Download of %s failed: %s", item.URL, err)
			result.Errors = append(result.Errors, Failure{Source: id.String(), URL: item.URL, Message: err.Error()})
			continue
		}

		result.Completed = append(result.Completed, Completion{Source: id.String(), URL: item.URL})
		if opts.OnComplete != nil {
			opts.OnComplete(id, item.URL)
		}
	}

	return result
}

// itemOptions builds the handler options for one admitted item. Every
// item gets its own value, handlers never observe shared state.
func (o *Options) itemOptions(id source.ID) downloader.Options {
	itemOpts := downloader.Options{Verbose: o.Verbose}

	switch {
	case id == source.Instagram:
		itemOpts.Auth = downloader.AuthAuto
	case id != source.GoogleDrive:
		itemOpts.UseSession = true
	}

	return itemOpts
}
