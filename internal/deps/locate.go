package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"chapterize/internal/config"
)

// Tool names as they appear on PATH.
const (
	ToolFFmpeg  = "ffmpeg"
	ToolFFprobe = "ffprobe"
	ToolYtDlp   = "yt-dlp"
)

// Location sources reported by Locate.
const (
	SourceOverride = "config"
	SourceBundle   = "bundle"
	SourceAppDir   = "app_dir"
	SourcePath     = "path"
)

// ExecutableLocation records where an external tool was found. A location with
// Found=false stays absent for the rest of the run.
type ExecutableLocation struct {
	Tool   string
	Path   string
	Found  bool
	Source string
}

// Command returns the path to execute. A missing tool reports its
// unresolved override when one was configured, otherwise the bare tool name,
// so messages point at what the user has to fix.
func (l ExecutableLocation) Command() string {
	if l.Path != "" {
		return l.Path
	}
	return l.Tool
}

// Resolver finds tool executables. The search order is an explicit override,
// the bundle directory, the directory of the running executable, then PATH.
type Resolver struct {
	BundleDir string
	AppDir    string
	lookPath  func(string) (string, error)
}

// NewResolver builds a resolver for the given bundle directory. The
// application directory is derived from os.Executable.
func NewResolver(bundleDir string) *Resolver {
	r := &Resolver{BundleDir: strings.TrimSpace(bundleDir), lookPath: exec.LookPath}
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		r.AppDir = filepath.Dir(exe)
	}
	return r
}

// Locate resolves one tool. override may be a bare command name or a path.
func (r *Resolver) Locate(tool, override string) ExecutableLocation {
	loc := ExecutableLocation{Tool: tool}
	lookPath := r.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	if override = strings.TrimSpace(override); override != "" && override != tool {
		if path, err := lookPath(override); err == nil {
			return ExecutableLocation{Tool: tool, Path: path, Found: true, Source: SourceOverride}
		}
		// An explicit override that does not resolve is final.
		loc.Path = override
		return loc
	}

	name := executableName(tool)
	for _, candidate := range []struct {
		dir    string
		source string
	}{
		{r.BundleDir, SourceBundle},
		{r.AppDir, SourceAppDir},
	} {
		if candidate.dir == "" {
			continue
		}
		path := filepath.Join(candidate.dir, name)
		if info, err := os.Stat(path); err == nil && isExecutable(info) {
			return ExecutableLocation{Tool: tool, Path: path, Found: true, Source: candidate.source}
		}
	}

	if path, err := lookPath(name); err == nil {
		return ExecutableLocation{Tool: tool, Path: path, Found: true, Source: SourcePath}
	}
	return loc
}

// Toolset holds the resolved locations of every tool chapterize invokes.
type Toolset struct {
	FFmpeg  ExecutableLocation
	FFprobe ExecutableLocation
	YtDlp   ExecutableLocation
}

// Resolve locates all tools once using the configured overrides.
func Resolve(cfg *config.Config) Toolset {
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	r := NewResolver(cfg.Tools.BundleDir)
	return Toolset{
		FFmpeg:  r.Locate(ToolFFmpeg, cfg.Tools.FFmpeg),
		FFprobe: r.Locate(ToolFFprobe, cfg.Tools.FFprobe),
		YtDlp:   r.Locate(ToolYtDlp, cfg.Tools.YtDlp),
	}
}

func executableName(tool string) string {
	if runtime.GOOS == "windows" && !strings.EqualFold(filepath.Ext(tool), ".exe") {
		return tool + ".exe"
	}
	return tool
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
