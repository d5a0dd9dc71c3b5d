package testsupport

import (
	"context"
	"fmt"
	"sync"

	"tubeferry/internal/engine"
)

// FakeEngine is an in-memory engine.Engine. Probes and searches are answered
// from maps; downloads finish at once unless their URL is gated.
type FakeEngine struct {
	mu        sync.Mutex
	probes    map[string]*engine.Entry
	probeErrs map[string]error
	searches  map[string][]engine.Entry
	dlErrs    map[string]error
	files     map[string]string
	gates     map[string]chan struct{}

	alive      int
	maxAlive   int
	started    []string
	startedSig chan string
	probed     []string
	searched   []string
}

// NewFakeEngine returns an engine with no canned answers.
func NewFakeEngine() *FakeEngine {
	return &FakeEngine{
		probes:     make(map[string]*engine.Entry),
		probeErrs:  make(map[string]error),
		searches:   make(map[string][]engine.Entry),
		dlErrs:     make(map[string]error),
		files:      make(map[string]string),
		gates:      make(map[string]chan struct{}),
		startedSig: make(chan string, 64),
	}
}

// AddVideo registers a single-video probe answer for url.
func (f *FakeEngine) AddVideo(url, id, title string) {
	f.SetProbe(url, &engine.Entry{Type: "video", ID: id, Title: title, WebpageURL: url})
}

// SetProbe registers the probe answer for url.
func (f *FakeEngine) SetProbe(url string, entry *engine.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes[url] = entry
}

// SetProbeError makes probes of url fail.
func (f *FakeEngine) SetProbeError(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeErrs[url] = err
}

// SetSearch registers search results for query.
func (f *FakeEngine) SetSearch(query string, results []engine.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches[query] = results
}

// SetDownloadError makes the download of url fail with err.
func (f *FakeEngine) SetDownloadError(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dlErrs[url] = err
}

// SetFilename makes the download of url report path as its final file.
func (f *FakeEngine) SetFilename(url, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[url] = path
}

// Gate holds downloads of url until Release is called.
func (f *FakeEngine) Gate(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gates[url] = make(chan struct{})
}

// Release lets a gated download finish.
func (f *FakeEngine) Release(url string) {
	f.mu.Lock()
	gate := f.gates[url]
	delete(f.gates, url)
	f.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

// Probe implements engine.Prober.
func (f *FakeEngine) Probe(_ context.Context, url string, _ engine.ProbeOptions) (*engine.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probed = append(f.probed, url)
	if err, ok := f.probeErrs[url]; ok {
		return nil, err
	}
	entry, ok := f.probes[url]
	if !ok {
		return nil, fmt.Errorf("ERROR: [generic] Unsupported URL: %s", url)
	}
	clone := *entry
	return &clone, nil
}

// Search implements engine.Searcher.
func (f *FakeEngine) Search(_ context.Context, query string, limit int) ([]engine.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched = append(f.searched, query)
	results := f.searches[query]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return append([]engine.Entry(nil), results...), nil
}

// Download implements engine.Downloader.
func (f *FakeEngine) Download(ctx context.Context, req engine.DownloadRequest, onProgress func(engine.Progress)) error {
	f.mu.Lock()
	f.alive++
	if f.alive > f.maxAlive {
		f.maxAlive = f.alive
	}
	f.started = append(f.started, req.URL)
	gate := f.gates[req.URL]
	err := f.dlErrs[req.URL]
	filename := f.files[req.URL]
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.alive--
		f.mu.Unlock()
	}()
	select {
	case f.startedSig <- req.URL:
	default:
	}

	onProgress(engine.Progress{Status: engine.Ptr("downloading"), DownloadedBytes: engine.Ptr(1.0), TotalBytes: engine.Ptr(2.0)})
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	final := engine.Progress{Status: engine.Ptr("finished")}
	if filename != "" {
		final.Filename = engine.Ptr(filename)
	}
	onProgress(final)
	return nil
}

// Started returns a channel receiving each URL as its download begins.
func (f *FakeEngine) Started() <-chan string {
	return f.startedSig
}

// MaxAlive is the highest number of concurrent downloads observed.
func (f *FakeEngine) MaxAlive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxAlive
}

// Alive is the number of downloads currently running.
func (f *FakeEngine) Alive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive
}

// Downloads lists the URLs whose download was started.
func (f *FakeEngine) Downloads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.started...)
}

// Searches lists every query searched so far.
func (f *FakeEngine) Searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searched...)
}
