package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tubeferry/internal/ipc"
	"tubeferry/internal/queue"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var (
		quality string
		format  string
		folder  string
		prefix  string
		strict  bool
		limit   int
		noStart bool
	)

	cmd := &cobra.Command{
		Use:   "add URL...",
		Short: "Queue one or more URLs for download",
		Long: "Queue videos, playlists, channels or Spotify tracks, albums and playlists.\n" +
			"Quality and format default to downloads.default_quality and downloads.default_format.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}
			req := ipc.AddRequest{Requests: make([]queue.Request, 0, len(args))}
			for _, raw := range args {
				url := strings.TrimSpace(raw)
				if url == "" {
					continue
				}
				req.Requests = append(req.Requests, queue.Request{
					URL:                url,
					Quality:            strings.TrimSpace(quality),
					Format:             strings.TrimSpace(format),
					Folder:             strings.TrimSpace(folder),
					CustomNamePrefix:   strings.TrimSpace(prefix),
					PlaylistStrictMode: strict,
					PlaylistItemLimit:  limit,
					AutoStart:          !noStart,
				})
			}
			if len(req.Requests) == 0 {
				return fmt.Errorf("no URLs given")
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Add(req)
				if err != nil {
					return err
				}
				return printAddResults(cmd, resp.Results)
			})
		},
	}

	cmd.Flags().StringVarP(&quality, "quality", "q", "", "Quality: best, audio, or a maximum height such as 720")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Format: any, mp4, mp3, m4a, opus, wav, flac or thumbnail")
	cmd.Flags().StringVar(&folder, "folder", "", "Subfolder of the download directory (requires downloads.custom_dirs)")
	cmd.Flags().StringVar(&prefix, "prefix", "", "Prefix added to the output file name")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat mixed video/playlist URLs as playlists only")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum playlist items to queue (0 means all)")
	cmd.Flags().BoolVar(&noStart, "no-start", false, "Leave new jobs pending instead of starting them")
	return cmd
}

func printAddResults(cmd *cobra.Command, results []ipc.AddResult) error {
	stdout := cmd.OutOrStdout()
	failed := 0
	for _, res := range results {
		if res.Failed() {
			failed++
			fmt.Fprintf(stdout, "Failed %s: %s\n", res.URL, res.Msg)
			continue
		}
		if msg := strings.TrimSpace(res.Msg); msg != "" {
			fmt.Fprintf(stdout, "Queued %s %s\n", res.URL, msg)
			continue
		}
		fmt.Fprintf(stdout, "Queued %s\n", res.URL)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d URLs could not be queued", failed, len(results))
	}
	return nil
}
