// Package engine drives the yt-dlp CLI.
//
// Probe and Search run flat JSON extractions; Download runs one item in its
// own process group and turns the progress/print template lines into
// Progress updates. Executors are injectable so tests never spawn yt-dlp.
package engine
