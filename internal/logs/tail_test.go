package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"shiptrack/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shiptrack.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\nd\n")

	tests := []struct {
		limit int
		want  []string
	}{
		{limit: 2, want: []string{"c", "d"}},
		{limit: 4, want: []string{"a", "b", "c", "d"}},
		{limit: 10, want: []string{"a", "b", "c", "d"}},
		{limit: 0, want: nil},
	}
	for _, tt := range tests {
		chunk, err := logs.Tail(path, tt.limit)
		if err != nil {
			t.Fatalf("Tail(%d): %v", tt.limit, err)
		}
		if !slices.Equal(chunk.Lines, tt.want) {
			t.Fatalf("Tail(%d) = %#v, want %#v", tt.limit, chunk.Lines, tt.want)
		}
		if chunk.Offset != 8 {
			t.Fatalf("Tail(%d) offset = %d, want 8", tt.limit, chunk.Offset)
		}
	}
}

func TestTailMissingFile(t *testing.T) {
	chunk, err := logs.Tail(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(chunk.Lines) != 0 || chunk.Offset != 0 {
		t.Fatalf("expected empty chunk, got %+v", chunk)
	}
}

func TestReadFromLeavesPartialLine(t *testing.T) {
	path := writeLog(t, "one\ntwo\npart")

	chunk, err := logs.ReadFrom(path, 4)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if !slices.Equal(chunk.Lines, []string{"two"}) || chunk.Offset != 8 {
		t.Fatalf("unexpected chunk %+v", chunk)
	}

	chunk, err = logs.ReadFrom(path, 100)
	if err != nil {
		t.Fatalf("ReadFrom past end: %v", err)
	}
	if len(chunk.Lines) != 2 {
		t.Fatalf("expected restart from zero after truncation, got %+v", chunk)
	}
}

func TestFollowEmitsAppendedLines(t *testing.T) {
	path := writeLog(t, "start\n")
	start, err := logs.Tail(path, 0)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	var got []string
	done := make(chan error, 1)
	go func() {
		done <- logs.Follow(ctx, path, start.Offset, 10*time.Millisecond, func(line string) {
			mu.Lock()
			got = append(got, line)
			mu.Unlock()
			if line == "later" {
				cancel()
			}
		})
	}()

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	if err := <-done; err != nil {
		t.Fatalf("Follow: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !slices.Equal(got, []string{"later"}) {
		t.Fatalf("unexpected lines %#v", got)
	}
}
