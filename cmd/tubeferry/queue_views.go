package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"

	"tubeferry/internal/ipc"
)

var (
	queueHeaders = []string{"Title", "Status", "Progress", "Speed", "ETA", "Key"}
	queueAligns  = []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}
)

func queueRows(items []ipc.Item, colorize bool) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			itemTitle(item),
			colorizeQueueStatus(itemStatus(item), item.Status, colorize),
			formatPercent(item.Percent),
			formatSpeed(item.Speed),
			formatETA(item.ETA),
			item.Key,
		})
	}
	return rows
}

func itemTitle(item ipc.Item) string {
	if title := strings.TrimSpace(item.Title); title != "" {
		return title
	}
	return item.URL
}

func itemStatus(item ipc.Item) string {
	status := string(item.Status)
	if msg := strings.TrimSpace(item.Msg); msg != "" {
		return status + ": " + msg
	}
	return status
}

func formatPercent(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *p)
}

func formatSpeed(bytesPerSecond *float64) string {
	if bytesPerSecond == nil || *bytesPerSecond <= 0 {
		return "-"
	}
	return datasize.ByteSize(*bytesPerSecond).HumanReadable() + "/s"
}

func formatETA(seconds *int64) string {
	if seconds == nil || *seconds < 0 {
		return "-"
	}
	return (time.Duration(*seconds) * time.Second).String()
}
