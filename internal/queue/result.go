package queue

import "context"

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Result is the outcome of a queue operation as shown to callers.
type Result struct {
	Status string `json:"status"`
	Msg    string `json:"msg,omitempty"`
	Err    error  `json:"-"`
}

// OK builds a successful result.
func OK(msg string) Result {
	return Result{Status: StatusOK, Msg: msg}
}

// Fail builds an error result whose message is err's text.
func Fail(err error) Result {
	if err == nil {
		return OK("")
	}
	return Result{Status: StatusError, Msg: err.Error(), Err: err}
}

// Failed reports whether the result carries an error.
func (r Result) Failed() bool {
	return r.Status == StatusError
}

// Request describes one admission.
type Request struct {
	URL                string `json:"url"`
	Quality            string `json:"quality,omitempty"`
	Format             string `json:"format,omitempty"`
	Folder             string `json:"folder,omitempty"`
	CustomNamePrefix   string `json:"custom_name_prefix,omitempty"`
	PlaylistStrictMode bool   `json:"playlist_strict_mode,omitempty"`
	PlaylistItemLimit  int    `json:"playlist_item_limit,omitempty"`
	AutoStart          bool   `json:"auto_start"`
}

// Submit re-enters admission for a derived request while sharing the
// caller's visited set.
type Submit func(ctx context.Context, req Request) Result

// Resolver turns restricted-catalog references into open-index admissions.
type Resolver interface {
	// Handles reports whether url belongs to the restricted catalog.
	Handles(url string) bool
	// Resolve admits the items url refers to through submit. It returns
	// false when the content type is declined and generic extraction
	// should be attempted instead.
	Resolve(ctx context.Context, req Request, submit Submit) (Result, bool)
	// Hint appends catalog-specific advice to an extraction failure.
	Hint(msg string) string
}
