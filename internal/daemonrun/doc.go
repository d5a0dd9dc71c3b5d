// Package daemonrun builds the tubeferryd process: logger, stores, yt-dlp
// client, catalog resolver, notifier, queue, daemon and IPC server, and
// tears them down again on SIGINT, SIGTERM or an IPC shutdown request.
package daemonrun
