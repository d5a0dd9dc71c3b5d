package config

const (
	defaultDownloadDir            = "~/Downloads/tubeferry"
	defaultStateDir               = "~/.local/share/tubeferry/state"
	defaultLogDir                 = "~/.local/share/tubeferry/logs"
	defaultMode                   = ModeLimited
	defaultMaxConcurrent          = 3
	defaultQuality                = "best"
	defaultFormat                 = "any"
	defaultOutputTemplate         = "%(title)s.%(ext)s"
	defaultOutputTemplateChapter  = "%(title)s - %(section_number)s %(section_title)s.%(ext)s"
	defaultOutputTemplatePlaylist = "%(playlist_title)s/%(title)s.%(ext)s"
	defaultYtdlpBinary            = "yt-dlp"
	defaultSocketTimeout          = 30
	defaultProbeTimeout           = 60
	defaultSpotifyAPIBaseURL      = "https://api.spotify.com/v1"
	defaultSpotifyTokenURL        = "https://accounts.spotify.com/api/token"
	defaultSpotifyOEmbedURL       = "https://open.spotify.com/oembed"
	defaultSpotifyRequestTimeout  = 10
	defaultMaxSearchAttempts      = 5
	defaultSearchResults          = 5
	defaultNtfyRequestTimeout     = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
)

// Concurrency modes accepted by downloads.mode.
const (
	ModeSequential = "sequential"
	ModeLimited    = "limited"
	ModeUnlimited  = "unlimited"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir: defaultDownloadDir,
			StateDir:    defaultStateDir,
			LogDir:      defaultLogDir,
		},
		Downloads: Downloads{
			Mode:                   defaultMode,
			MaxConcurrent:          defaultMaxConcurrent,
			CustomDirs:             true,
			CreateCustomDirs:       true,
			DefaultQuality:         defaultQuality,
			DefaultFormat:          defaultFormat,
			OutputTemplate:         defaultOutputTemplate,
			OutputTemplateChapter:  defaultOutputTemplateChapter,
			OutputTemplatePlaylist: defaultOutputTemplatePlaylist,
			YtdlpBinary:            defaultYtdlpBinary,
			SocketTimeout:          defaultSocketTimeout,
			ProbeTimeout:           defaultProbeTimeout,
		},
		Spotify: Spotify{
			APIBaseURL:        defaultSpotifyAPIBaseURL,
			TokenURL:          defaultSpotifyTokenURL,
			OEmbedURL:         defaultSpotifyOEmbedURL,
			RequestTimeout:    defaultSpotifyRequestTimeout,
			MaxSearchAttempts: defaultMaxSearchAttempts,
			SearchResults:     defaultSearchResults,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			Completed:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
