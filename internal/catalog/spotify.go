package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"tubeferry/internal/config"
	"tubeferry/internal/logging"
)

const unknownArtist = "Unknown Artist"

// Metadata fetches track lists for Spotify references.
type Metadata interface {
	Tracks(ctx context.Context, ref Ref) ([]Track, error)
}

// Client talks to the Spotify Web API and the public oEmbed endpoint.
type Client struct {
	apiBaseURL string
	oembedURL  string
	public     *http.Client
	api        *http.Client
	logger     *slog.Logger
}

var _ Metadata = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// WithHTTPClient overrides the base HTTP client used for every request,
// including token exchange.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewClient builds a client from the spotify settings. Without credentials
// only single tracks can be looked up, through oEmbed.
func NewClient(cfg config.Spotify, opts ...ClientOption) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	o := clientOptions{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Client{
		apiBaseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		oembedURL:  cfg.OEmbedURL,
		public:     o.httpClient,
		logger:     o.logger,
	}
	if cfg.ClientID != "" && cfg.ClientSecret != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, o.httpClient)
		api := cc.Client(ctx)
		api.Timeout = o.httpClient.Timeout
		c.api = api
		c.logger.Info("spotify api client initialized")
	} else {
		c.logger.Info("no spotify api credentials configured, single tracks use oembed")
	}
	return c
}

// Authenticated reports whether Web API lookups are available.
func (c *Client) Authenticated() bool {
	return c.api != nil
}

// Tracks returns the tracks behind ref. Albums and playlists need
// credentials; without them the result is empty.
func (c *Client) Tracks(ctx context.Context, ref Ref) ([]Track, error) {
	switch ref.Type {
	case TypeTrack:
		track, err := c.track(ctx, ref.ID)
		if err != nil || track == nil {
			return nil, err
		}
		return []Track{*track}, nil
	case TypeAlbum:
		if c.api == nil {
			c.logger.Warn("album lookup requires spotify api credentials", logging.String("album_id", ref.ID))
			return nil, nil
		}
		return c.albumTracks(ctx, ref.ID)
	case TypePlaylist:
		if c.api == nil {
			c.logger.Warn("playlist lookup requires spotify api credentials", logging.String("playlist_id", ref.ID))
			return nil, nil
		}
		return c.playlistTracks(ctx, ref.ID)
	default:
		return nil, nil
	}
}

type apiArtist struct {
	Name string `json:"name"`
}

type apiTrack struct {
	Type        string      `json:"type"`
	Name        string      `json:"name"`
	Artists     []apiArtist `json:"artists"`
	DurationMS  int64       `json:"duration_ms"`
	TrackNumber int         `json:"track_number"`
	Album       *struct {
		Name string `json:"name"`
	} `json:"album"`
}

func (t apiTrack) toTrack(album string) Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	if album == "" && t.Album != nil {
		album = t.Album.Name
	}
	return Track{
		Name:        t.Name,
		Artists:     artists,
		DurationMS:  t.DurationMS,
		Album:       album,
		TrackNumber: t.TrackNumber,
	}
}

type trackPage struct {
	Items []apiTrack `json:"items"`
	Next  string     `json:"next"`
}

type playlistPage struct {
	Items []struct {
		Track *apiTrack `json:"track"`
	} `json:"items"`
	Next string `json:"next"`
}

func (c *Client) track(ctx context.Context, id string) (*Track, error) {
	if c.api != nil {
		var payload apiTrack
		err := c.getJSON(ctx, c.api, c.apiBaseURL+"/tracks/"+url.PathEscape(id), &payload)
		if err == nil {
			track := payload.toTrack("")
			return &track, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.WarnWithContext(c.logger, "spotify track lookup failed, falling back to oembed", "spotify_api_failed",
			logging.String("track_id", id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check spotify client credentials"),
		)
	}
	return c.oembedTrack(ctx, id)
}

func (c *Client) albumTracks(ctx context.Context, id string) ([]Track, error) {
	var album struct {
		Name   string    `json:"name"`
		Tracks trackPage `json:"tracks"`
	}
	if err := c.getJSON(ctx, c.api, c.apiBaseURL+"/albums/"+url.PathEscape(id), &album); err != nil {
		return nil, err
	}
	var tracks []Track
	page := album.Tracks
	for {
		for _, t := range page.Items {
			tracks = append(tracks, t.toTrack(album.Name))
		}
		if page.Next == "" {
			return tracks, nil
		}
		next := page.Next
		page = trackPage{}
		if err := c.getJSON(ctx, c.api, next, &page); err != nil {
			return nil, err
		}
	}
}

func (c *Client) playlistTracks(ctx context.Context, id string) ([]Track, error) {
	var tracks []Track
	next := c.apiBaseURL + "/playlists/" + url.PathEscape(id) + "/tracks?limit=100"
	for next != "" {
		var page playlistPage
		if err := c.getJSON(ctx, c.api, next, &page); err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if item.Track == nil || item.Track.Type != "track" {
				continue
			}
			tracks = append(tracks, item.Track.toTrack(""))
		}
		next = page.Next
	}
	return tracks, nil
}

// oembedTrack reads the public display title, "<artist> - <track>".
func (c *Client) oembedTrack(ctx context.Context, id string) (*Track, error) {
	endpoint, err := url.Parse(c.oembedURL)
	if err != nil {
		return nil, fmt.Errorf("parse oembed url: %w", err)
	}
	params := endpoint.Query()
	params.Set("url", "https://open.spotify.com/track/"+id)
	endpoint.RawQuery = params.Encode()

	var payload struct {
		Title string `json:"title"`
	}
	if err := c.getJSON(ctx, c.public, endpoint.String(), &payload); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.WarnWithContext(c.logger, "spotify oembed lookup failed", "spotify_oembed_failed",
			logging.String("track_id", id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "configure spotify client credentials for reliable lookups"),
		)
		return nil, nil
	}
	if artist, name, ok := strings.Cut(payload.Title, " - "); ok {
		return &Track{Name: name, Artists: []string{artist}}, nil
	}
	return &Track{Name: payload.Title, Artists: []string{unknownArtist}}, nil
}

func (c *Client) getJSON(ctx context.Context, client *http.Client, endpoint string, out any) error {
	if client == nil {
		return errors.New("spotify client not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	latency := time.Since(start)
	if err != nil {
		return fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spotify returned %d (latency=%v)", resp.StatusCode, latency)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode spotify response: %w", err)
	}
	return nil
}
