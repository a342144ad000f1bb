package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteVideo creates a placeholder video file with its companion chapter
// text. An empty chapters string creates the video alone.
func WriteVideo(t testing.TB, dir, name, chapterText string) string {
	t.Helper()
	video := WriteFile(t, filepath.Join(dir, name), "not really a video")
	if chapterText != "" {
		ext := filepath.Ext(name)
		WriteFile(t, filepath.Join(dir, name[:len(name)-len(ext)]+".txt"), chapterText)
	}
	return video
}
