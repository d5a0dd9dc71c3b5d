// Package catalog maps Spotify references onto YouTube videos.
//
// Spotify content cannot be downloaded directly, so the resolver fetches
// track metadata (Web API with client credentials, or the public oEmbed
// endpoint for single tracks), searches YouTube with a ladder of query
// variants, scores the candidates, and re-submits the winning video URL to
// the queue. Albums and playlists are resolved track by track.
package catalog
