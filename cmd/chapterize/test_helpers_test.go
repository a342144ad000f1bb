package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const ffmpegStub = `#!/bin/sh
case "$1" in -version) echo "ffmpeg version 9.9-test"; exit 0;; esac
case "$*" in *broken*) echo "broken.mp4: Invalid data found when processing input" >&2; exit 1;; esac
for last; do :; done
printf 'remuxed' > "$last"
`

const ffprobeStub = `#!/bin/sh
case "$1" in -version) echo "ffprobe version 9.9-test"; exit 0;; esac
cat <<'JSON'
{"format": {"duration": "3600.000000", "size": "1024"},
 "streams": [{"index": 0, "codec_type": "video", "codec_name": "h264"}, {"index": 1, "codec_type": "audio", "codec_name": "aac"}],
 "chapters": [{"id": 0, "time_base": "1/1000", "start_time": "0.000000", "end_time": "60.000000", "tags": {"title": "Opening"}}]}
JSON
`

const ytDlpStub = `#!/bin/sh
case "$1" in --version) echo "2025.01.01"; exit 0;; esac
case " $* " in *" --get-title "*) echo "Test: Video"; exit 0;; esac
out=""
prev=""
for arg; do
  if [ "$prev" = "-o" ]; then out="$arg"; fi
  prev="$arg"
done
echo "[download]  42.0% of 10.00MiB at 1.00MiB/s ETA 00:06"
echo "[download] 100.0% of 10.00MiB in 00:10"
file=$(printf '%s' "$out" | sed 's/%(ext)s/mp4/')
printf 'video' > "$file"
`

type cliTestEnv struct {
	baseDir    string
	binDir     string
	configPath string
	logDir     string
	stateDir   string
	downloads  string
}

// setupCLITestEnv writes stub tools and a config pointing at temp
// directories. toolLines are added to the [tools] table.
func setupCLITestEnv(t *testing.T, toolLines ...string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	home := filepath.Join(base, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", home)
	t.Setenv("CHAPTERIZE_BUNDLE_DIR", "")

	env := &cliTestEnv{
		baseDir:    base,
		binDir:     filepath.Join(base, "bin"),
		configPath: filepath.Join(base, "config.toml"),
		logDir:     filepath.Join(base, "logs"),
		stateDir:   filepath.Join(base, "state"),
		downloads:  filepath.Join(base, "downloads"),
	}
	if err := os.MkdirAll(env.binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	for name, script := range map[string]string{"ffmpeg": ffmpegStub, "ffprobe": ffprobeStub, "yt-dlp": ytDlpStub} {
		if err := os.WriteFile(filepath.Join(env.binDir, name), []byte(script), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}

	content := fmt.Sprintf(`[paths]
log_dir = %q
state_dir = %q
download_dir = %q

[tools]
bundle_dir = %q
%s

[batch]
access_retry_delay_seconds = 0

[logging]
level = "error"
`, env.logDir, env.stateDir, env.downloads, env.binDir, strings.Join(toolLines, "\n"))
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, env *cliTestEnv, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if env != nil {
		flags = append(flags, "--config", env.configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
