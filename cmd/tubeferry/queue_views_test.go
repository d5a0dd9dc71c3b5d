package main

import (
	"strings"
	"testing"

	"tubeferry/internal/ipc"
	"tubeferry/internal/store"
)

func TestQueueRows(t *testing.T) {
	percent := 42.5
	speed := float64(2 * 1024 * 1024)
	eta := int64(90)
	items := []ipc.Item{
		{Key: "https://youtu.be/a", Descriptor: store.Descriptor{Title: "Alpha", Status: store.StatusDownloading, Percent: &percent, Speed: &speed, ETA: &eta}},
		{Key: "https://youtu.be/b", Descriptor: store.Descriptor{URL: "https://youtu.be/b", Status: store.StatusError, Msg: "Video unavailable"}},
	}

	rows := queueRows(items, false)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"title", rows[0][0], "Alpha"},
		{"status", rows[0][1], "downloading"},
		{"percent", rows[0][2], "42.5%"},
		{"speed", rows[0][3], "2.0 MB/s"},
		{"eta", rows[0][4], "1m30s"},
		{"title falls back to url", rows[1][0], "https://youtu.be/b"},
		{"status carries message", rows[1][1], "error: Video unavailable"},
		{"missing percent", rows[1][2], "-"},
		{"missing eta", rows[1][4], "-"},
	}
	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, tc.got, tc.want)
		}
	}
}

func TestRenderPlainPadsShortRows(t *testing.T) {
	out := renderPlain([]string{"A", "B", "C"}, [][]string{{"1"}, {"1", "2", "3"}})
	want := "A\tB\tC\n1\t\t\n1\t2\t3\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestRenderTableIncludesHeaders(t *testing.T) {
	out := renderTable([]string{"Queue", "Count"}, [][]string{{"active", "3"}}, []columnAlignment{alignLeft, alignRight})
	for _, want := range []string{"QUEUE", "COUNT", "active", "3"} {
		if !strings.Contains(strings.ToUpper(out), strings.ToUpper(want)) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
}

func TestQueueStatusColors(t *testing.T) {
	tests := []struct {
		status store.Status
		want   string
	}{
		{store.StatusFinished, ansiGreen},
		{store.StatusError, ansiRed},
		{store.StatusCanceled, ansiYellow},
		{store.StatusDownloading, ansiBlue},
		{store.StatusPreparing, ansiBlue},
	}
	for _, tc := range tests {
		got := colorizeQueueStatus(string(tc.status), tc.status, true)
		if got != tc.want+string(tc.status)+ansiReset {
			t.Errorf("%s: got %q", tc.status, got)
		}
	}
	if got := colorizeQueueStatus("pending", store.StatusPending, true); got != "pending" {
		t.Errorf("pending should stay uncolored, got %q", got)
	}
	if got := colorizeQueueStatus("finished", store.StatusFinished, false); got != "finished" {
		t.Errorf("colorize disabled, got %q", got)
	}

	rows := queueRows([]ipc.Item{{Key: "k", Descriptor: store.Descriptor{Title: "t", Status: store.StatusError, Msg: "boom"}}}, true)
	if rows[0][1] != ansiRed+"error: boom"+ansiReset {
		t.Fatalf("status cell not colored: %q", rows[0][1])
	}
}
