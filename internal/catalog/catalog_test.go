package catalog_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tubeferry/internal/catalog"
	"tubeferry/internal/config"
	"tubeferry/internal/engine"
	"tubeferry/internal/logging"
	"tubeferry/internal/queue"
	"tubeferry/internal/services"
	"tubeferry/internal/testsupport"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		url  string
		want catalog.Ref
	}{
		{"https://open.spotify.com/track/4u7EnebtmKWzUH433cf5Qv", catalog.Ref{Type: catalog.TypeTrack, ID: "4u7EnebtmKWzUH433cf5Qv"}},
		{"https://open.spotify.com/intl-de/track/4u7EnebtmKWzUH433cf5Qv?si=abc", catalog.Ref{Type: catalog.TypeTrack, ID: "4u7EnebtmKWzUH433cf5Qv"}},
		{"spotify:album:1GbtB4zTqAsyfZEsm1RZfx", catalog.Ref{Type: catalog.TypeAlbum, ID: "1GbtB4zTqAsyfZEsm1RZfx"}},
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", catalog.Ref{Type: catalog.TypePlaylist, ID: "37i9dQZF1DXcBWIGoYBM5M"}},
		{"https://open.spotify.com/show/5CfCWKI5pZ28U0uOzXkDHe", catalog.Ref{Type: catalog.TypeShow, ID: "5CfCWKI5pZ28U0uOzXkDHe"}},
		{"spotify:episode:512ojhOuo1ktJprKbVcKyQ", catalog.Ref{Type: catalog.TypeEpisode, ID: "512ojhOuo1ktJprKbVcKyQ"}},
		{"https://open.spotify.com/artist/1dfeR4HaWDbWqFHLkxsg1d", catalog.Ref{Type: catalog.TypeUnknown}},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			require.Equal(t, tt.want, catalog.Classify(tt.url))
		})
	}
}

func TestIsSpotifyURL(t *testing.T) {
	require.True(t, catalog.IsSpotifyURL("https://open.spotify.com/track/x"))
	require.True(t, catalog.IsSpotifyURL("HTTP://OPEN.SPOTIFY.COM/album/x"))
	require.True(t, catalog.IsSpotifyURL("spotify:track:abc"))
	require.False(t, catalog.IsSpotifyURL("https://www.youtube.com/watch?v=fJ9rUzIMcZQ"))
	require.False(t, catalog.IsSpotifyURL("https://example.com/?next=https://open.spotify.com/track/x"))
}

var bohemian = catalog.Track{
	Name:       "Bohemian Rhapsody",
	Artists:    []string{"Queen"},
	Album:      "A Night at the Opera",
	DurationMS: 354_000,
}

func TestQueriesMostSpecificFirst(t *testing.T) {
	queries := bohemian.Queries()
	require.Equal(t, "Queen - Bohemian Rhapsody", queries[0])
	require.Contains(t, queries, "Queen - Bohemian Rhapsody official")
	require.Contains(t, queries, "Queen - Bohemian Rhapsody A Night at the Opera")
	require.Contains(t, queries, "Bohemian Rhapsody")
	require.Equal(t, `"Queen" "Bohemian Rhapsody"`, queries[len(queries)-1])

	seen := make(map[string]bool)
	for _, q := range queries {
		require.False(t, seen[q], "duplicate query %q", q)
		seen[q] = true
	}
}

func TestQueriesCleaning(t *testing.T) {
	feat := catalog.Track{Name: "Stay (feat. Justin Bieber)", Artists: []string{"The Kid LAROI", "Justin Bieber"}}
	queries := feat.Queries()
	require.Equal(t, "The Kid LAROI Justin Bieber - Stay", queries[0])
	require.Equal(t, "The Kid LAROI - Stay", queries[1])
	require.Contains(t, queries, "The Kid LAROI Justin Bieber - Stay (feat. Justin Bieber)")

	remix := catalog.Track{Name: "Titanium (David Guetta Remix)", Artists: []string{"Sia"}}
	require.Contains(t, remix.Queries(), "Sia - Titanium")
	require.Equal(t, "Titanium", catalog.StripRemix(remix.Name))
	require.Equal(t, "Song", catalog.CleanName("Song featuring Someone"))
}

func TestScorePrefersOfficialMatchingDuration(t *testing.T) {
	official := engine.Entry{Title: "Queen - Bohemian Rhapsody", Uploader: "Queen Official", Duration: 354, WebpageURL: "https://youtu.be/official"}
	unrelated := engine.Entry{Title: "Queen - Bohemian Rhapsody", Uploader: "someone", Duration: 754, WebpageURL: "https://youtu.be/other"}

	require.Greater(t, catalog.Score(official, bohemian), catalog.Score(unrelated, bohemian))

	best, ok := catalog.SelectBest([]engine.Entry{unrelated, official}, bohemian)
	require.True(t, ok)
	require.Equal(t, "https://youtu.be/official", best.Key())
}

func TestScoreComponents(t *testing.T) {
	tests := []struct {
		name  string
		entry engine.Entry
		track catalog.Track
		want  int
	}{
		{"bare", engine.Entry{Title: "x"}, catalog.Track{Name: "x"}, 0},
		{"view tiers", engine.Entry{Title: "x", ViewCount: 2_000_000}, catalog.Track{Name: "x"}, 25},
		{"boundary views not counted", engine.Entry{Title: "x", ViewCount: 1000}, catalog.Track{Name: "x"}, 0},
		{"too short", engine.Entry{Title: "x", Duration: 20}, catalog.Track{Name: "x"}, -20},
		{"too long and far off", engine.Entry{Title: "x", Duration: 900}, catalog.Track{Name: "x", DurationMS: 200_000}, -25},
		{"live penalised", engine.Entry{Title: "song live"}, catalog.Track{Name: "song"}, -15},
		{"remix source not penalised", engine.Entry{Title: "song remix"}, catalog.Track{Name: "song (Remix)"}, 0},
		{"audio bonus stacks", engine.Entry{Title: "Song (Official Audio)"}, catalog.Track{Name: "song"}, 30},
		{"uploader indicator", engine.Entry{Title: "x", Uploader: "QueenVEVO"}, catalog.Track{Name: "x"}, 30},
		{"channel stands in for missing uploader", engine.Entry{Title: "x", Channel: "Queen Official"}, catalog.Track{Name: "x"}, 30},
		{"uploader wins over channel", engine.Entry{Title: "x", Uploader: "someone", Channel: "Queen Official"}, catalog.Track{Name: "x"}, 0},
		{"duration within 30s", engine.Entry{Title: "x", Duration: 215}, catalog.Track{Name: "x", DurationMS: 200_000}, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, catalog.Score(tt.entry, tt.track))
		})
	}
}

func TestRankIsStable(t *testing.T) {
	a := engine.Entry{Title: "a", URL: "https://youtu.be/a"}
	b := engine.Entry{Title: "b", URL: "https://youtu.be/b"}
	ranked := catalog.Rank([]engine.Entry{a, b}, catalog.Track{Name: "z"})
	require.Equal(t, "https://youtu.be/a", ranked[0].Entry.Key())

	only := engine.Entry{Title: "live cover", Duration: 5, URL: "https://youtu.be/only"}
	best, ok := catalog.SelectBest([]engine.Entry{only}, bohemian)
	require.True(t, ok)
	require.Equal(t, only, best)

	_, ok = catalog.SelectBest(nil, bohemian)
	require.False(t, ok)
}

// spotifyAPI serves a token endpoint plus canned Web API routes. Route
// bodies receive the server base URL so pagination links can be absolute.
func spotifyAPI(t *testing.T, routes map[string]func(base string) any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/oembed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("url") {
		case "https://open.spotify.com/track/plain":
			_, _ = w.Write([]byte(`{"title":"Untitled Jam"}`))
		case "https://open.spotify.com/track/missing":
			http.NotFound(w, r)
		default:
			_, _ = w.Write([]byte(`{"title":"Queen - Bohemian Rhapsody - Remastered 2011"}`))
		}
	})
	for path, body := range routes {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(body(server.URL))
		})
	}
	return server
}

func spotifyConfig(server *httptest.Server, authed bool) config.Spotify {
	cfg := config.Default().Spotify
	cfg.APIBaseURL = server.URL + "/v1"
	cfg.TokenURL = server.URL + "/token"
	cfg.OEmbedURL = server.URL + "/oembed"
	if authed {
		cfg.ClientID = "id"
		cfg.ClientSecret = "secret"
	}
	return cfg
}

func artists(names ...string) []map[string]string {
	out := make([]map[string]string, 0, len(names))
	for _, n := range names {
		out = append(out, map[string]string{"name": n})
	}
	return out
}

func apiTrack(name string, durationMS int, artistNames ...string) map[string]any {
	return map[string]any{"type": "track", "name": name, "artists": artists(artistNames...), "duration_ms": durationMS}
}

func albumRoutes() map[string]func(string) any {
	return map[string]func(string) any{
		"/v1/albums/alb": func(base string) any {
			return map[string]any{
				"name": "A Night at the Opera",
				"tracks": map[string]any{
					"items": []any{apiTrack("Bohemian Rhapsody", 354000, "Queen")},
					"next":  base + "/v1/albums/alb/tracks?offset=1",
				},
			}
		},
		"/v1/albums/alb/tracks": func(string) any {
			return map[string]any{"items": []any{apiTrack("Love of My Life", 219000, "Queen")}}
		},
	}
}

func TestClientAlbumFollowsPagination(t *testing.T) {
	server := spotifyAPI(t, albumRoutes())
	client := catalog.NewClient(spotifyConfig(server, true))
	require.True(t, client.Authenticated())

	tracks, err := client.Tracks(context.Background(), catalog.Ref{Type: catalog.TypeAlbum, ID: "alb"})
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	require.Equal(t, "Bohemian Rhapsody", tracks[0].Name)
	require.Equal(t, "Love of My Life", tracks[1].Name)
	require.Equal(t, "A Night at the Opera", tracks[1].Album)
	require.Equal(t, int64(219000), tracks[1].DurationMS)
}

func TestClientPlaylistSkipsNonTracks(t *testing.T) {
	server := spotifyAPI(t, map[string]func(string) any{
		"/v1/playlists/pl/tracks": func(base string) any {
			return map[string]any{
				"items": []any{
					map[string]any{"track": apiTrack("Bohemian Rhapsody", 354000, "Queen")},
					map[string]any{"track": nil},
					map[string]any{"track": map[string]any{"type": "episode", "name": "Podcast"}},
				},
			}
		},
	})
	client := catalog.NewClient(spotifyConfig(server, true))

	tracks, err := client.Tracks(context.Background(), catalog.Ref{Type: catalog.TypePlaylist, ID: "pl"})
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	require.Equal(t, []string{"Queen"}, tracks[0].Artists)
}

func TestClientTrackFallsBackToOEmbed(t *testing.T) {
	server := spotifyAPI(t, nil)
	client := catalog.NewClient(spotifyConfig(server, false))
	require.False(t, client.Authenticated())
	ctx := context.Background()

	tracks, err := client.Tracks(ctx, catalog.Ref{Type: catalog.TypeTrack, ID: "abc"})
	require.NoError(t, err)
	require.Equal(t, []catalog.Track{{Name: "Bohemian Rhapsody - Remastered 2011", Artists: []string{"Queen"}}}, tracks)

	tracks, err = client.Tracks(ctx, catalog.Ref{Type: catalog.TypeTrack, ID: "plain"})
	require.NoError(t, err)
	require.Equal(t, []string{"Unknown Artist"}, tracks[0].Artists)

	tracks, err = client.Tracks(ctx, catalog.Ref{Type: catalog.TypeTrack, ID: "missing"})
	require.NoError(t, err)
	require.Empty(t, tracks)

	tracks, err = client.Tracks(ctx, catalog.Ref{Type: catalog.TypeAlbum, ID: "alb"})
	require.NoError(t, err)
	require.Empty(t, tracks)
}

func TestHint(t *testing.T) {
	r := catalog.NewResolver(config.Default().Spotify, nil, nil, logging.NewNop())
	require.True(t, strings.HasSuffix(r.Hint("ERROR: This content is DRM protected"), "cannot be downloaded. Only some podcast content may be accessible."))
	require.Contains(t, r.Hint("HTTP Error 403: Forbidden"), "Spotify has blocked access")
	require.Contains(t, r.Hint("Access Blocked"), "Spotify has blocked access")
	require.Equal(t, "plain failure", r.Hint("plain failure"))
}

type queueHarness struct {
	q   *queue.Queue
	eng *testsupport.FakeEngine
	rec *testsupport.Recorder
}

func newHarness(t *testing.T, spotify config.Spotify) queueHarness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	eng := testsupport.NewFakeEngine()
	resolver := catalog.NewResolver(spotify, catalog.NewClient(spotify), eng, logging.NewNop())
	rec := testsupport.NewRecorder()
	q, err := queue.New(cfg, testsupport.MustOpenStores(t, cfg), eng, queue.WithNotifier(rec), queue.WithResolver(resolver))
	require.NoError(t, err)
	require.NoError(t, q.Restore(context.Background()))
	t.Cleanup(func() { _ = q.Close(context.Background()) })
	return queueHarness{q: q, eng: eng, rec: rec}
}

func TestAlbumWithoutCredentialsCreatesNoJobs(t *testing.T) {
	server := spotifyAPI(t, albumRoutes())
	h := newHarness(t, spotifyConfig(server, false))

	res := h.q.Admit(context.Background(), queue.Request{URL: "https://open.spotify.com/album/alb"}, nil)
	require.True(t, res.Failed())
	require.True(t, errors.Is(res.Err, services.ErrResolution))
	require.Equal(t, "No tracks found in Spotify album. This might require Spotify API credentials (SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET).", res.Msg)

	snap := h.q.Snapshot()
	require.Empty(t, snap.Pending)
	require.Empty(t, snap.Active)
	require.Empty(t, h.rec.Events())
}

func TestAlbumQueuesMatchesWithTrackPrefixes(t *testing.T) {
	server := spotifyAPI(t, albumRoutes())
	h := newHarness(t, spotifyConfig(server, true))

	official := engine.Entry{ID: "fJ9rUzIMcZQ", Title: "Queen - Bohemian Rhapsody (Official Video)", Uploader: "Queen Official", Duration: 359, ViewCount: 1_800_000_000, URL: "https://www.youtube.com/watch?v=fJ9rUzIMcZQ"}
	cover := engine.Entry{ID: "cover", Title: "Bohemian Rhapsody cover", Uploader: "someone", Duration: 400, URL: "https://www.youtube.com/watch?v=cover"}
	h.eng.SetSearch("Queen - Bohemian Rhapsody", []engine.Entry{cover, official})
	h.eng.AddVideo(official.URL, official.ID, official.Title)

	res := h.q.Admit(context.Background(), queue.Request{URL: "https://open.spotify.com/album/alb", CustomNamePrefix: "opera"}, nil)
	require.False(t, res.Failed(), res.Msg)
	require.Equal(t, "Successfully queued 1 tracks from Spotify album (1 tracks could not be found on YouTube)", res.Msg)

	pending := h.q.Snapshot().Pending
	require.Len(t, pending, 1)
	require.Equal(t, official.URL, pending[0].Key)
	require.Equal(t, "opera.01_Queen_Bohemian Rhapsody", pending[0].Descriptor.CustomNamePrefix)
	require.True(t, pending[0].Descriptor.PlaylistStrictMode)

	searches := h.eng.Searches()
	require.Equal(t, "Queen - Bohemian Rhapsody", searches[0])
	require.Len(t, searches, 1+5, "second track should exhaust the attempt budget")
}

func TestTrackKeepsCallerPrefix(t *testing.T) {
	server := spotifyAPI(t, nil)
	h := newHarness(t, spotifyConfig(server, false))

	video := engine.Entry{ID: "v1", Title: "Bohemian Rhapsody", URL: "https://www.youtube.com/watch?v=v1"}
	h.eng.SetSearch("Queen - Bohemian Rhapsody - Remastered 2011", []engine.Entry{video})
	h.eng.AddVideo(video.URL, video.ID, video.Title)

	res := h.q.Admit(context.Background(), queue.Request{URL: "spotify:track:abc", CustomNamePrefix: "mine"}, nil)
	require.False(t, res.Failed(), res.Msg)
	require.Equal(t, "Successfully queued 1 tracks from Spotify track", res.Msg)
	require.Equal(t, "mine", h.q.Snapshot().Pending[0].Descriptor.CustomNamePrefix)
}

func TestNoMatchesIsResolutionError(t *testing.T) {
	server := spotifyAPI(t, nil)
	h := newHarness(t, spotifyConfig(server, false))

	res := h.q.Admit(context.Background(), queue.Request{URL: "https://open.spotify.com/track/abc"}, nil)
	require.True(t, res.Failed())
	require.True(t, errors.Is(res.Err, services.ErrResolution))
	require.Equal(t, "Could not find any tracks from Spotify track on YouTube", res.Msg)
}

func TestShowIsDeclinedAndHinted(t *testing.T) {
	server := spotifyAPI(t, nil)
	h := newHarness(t, spotifyConfig(server, false))
	const show = "https://open.spotify.com/show/5CfCWKI5pZ28U0uOzXkDHe"
	h.eng.SetProbeError(show, errors.New("ERROR: [Spotify] This content is DRM protected"))

	res := h.q.Admit(context.Background(), queue.Request{URL: show}, nil)
	require.True(t, res.Failed())
	require.True(t, errors.Is(res.Err, services.ErrExtraction))
	require.True(t, strings.HasSuffix(res.Msg, "Only some podcast content may be accessible."))
	require.Empty(t, h.eng.Searches())
}

func TestExplainReportsAttempts(t *testing.T) {
	server := spotifyAPI(t, nil)
	spotify := spotifyConfig(server, false)
	eng := testsupport.NewFakeEngine()
	a := engine.Entry{Title: "Queen - Bohemian Rhapsody (Official Audio)", Uploader: "Queen Official", URL: "https://youtu.be/a"}
	b := engine.Entry{Title: "karaoke version", URL: "https://youtu.be/b"}
	eng.SetSearch("Queen - Bohemian Rhapsody - Remastered 2011 official", []engine.Entry{b, a})
	r := catalog.NewResolver(spotify, catalog.NewClient(spotify), eng, logging.NewNop())

	plan, err := r.Explain(context.Background(), "https://open.spotify.com/track/abc", 0)
	require.NoError(t, err)
	require.Equal(t, catalog.TypeTrack, plan.Type)
	require.Len(t, plan.Tracks, 1)
	tp := plan.Tracks[0]
	require.Equal(t, "https://youtu.be/a", tp.MatchURL)
	require.Len(t, tp.Attempts, 2)
	require.Empty(t, tp.Attempts[0].Candidates)
	require.Equal(t, "https://youtu.be/a", tp.Attempts[1].Candidates[0].Entry.Key())

	_, err = r.Explain(context.Background(), "https://youtu.be/a", 0)
	require.True(t, errors.Is(err, services.ErrValidation))
}
