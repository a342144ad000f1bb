package deps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chapterize/internal/toolexec"
)

// Requirement defines an external tool chapterize relies on.
type Requirement struct {
	Name        string
	Location    ExecutableLocation
	VersionArgs []string
	Description string
	Optional    bool
}

// Status reports the availability of a tool.
type Status struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Source      string `json:"source,omitempty"`
	Version     string `json:"version,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// Requirements lists the tools of a resolved toolset.
func Requirements(tools Toolset) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Location:    tools.FFmpeg,
			VersionArgs: []string{"-version"},
			Description: "Strips metadata and injects chapters",
		},
		{
			Name:        "FFprobe",
			Location:    tools.FFprobe,
			VersionArgs: []string{"-version"},
			Description: "Reads media duration for chapter checks",
			Optional:    true,
		},
		{
			Name:        "yt-dlp",
			Location:    tools.YtDlp,
			VersionArgs: []string{"--version"},
			Description: "Downloads videos for the download command",
			Optional:    true,
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
// Found tools are asked for their version with the given runner; a tool that
// cannot answer within timeout is reported as unavailable.
func CheckBinaries(ctx context.Context, runner toolexec.Runner, timeout time.Duration, requirements []Requirement) []Status {
	if runner == nil {
		runner = toolexec.Exec
	}
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Command:     req.Location.Command(),
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
			Source:      req.Location.Source,
		}
		if !req.Location.Found {
			status.Detail = fmt.Sprintf("binary %q not found", status.Command)
			results = append(results, status)
			continue
		}
		if len(req.VersionArgs) == 0 {
			status.Available = true
			results = append(results, status)
			continue
		}
		result, err := runner.Run(ctx, toolexec.Command{
			Binary:  req.Location.Path,
			Args:    req.VersionArgs,
			Timeout: timeout,
		})
		if err != nil {
			status.Detail = fmt.Sprintf("version probe failed: %v", err)
			results = append(results, status)
			continue
		}
		status.Available = true
		status.Version = firstLine(result.Stdout)
		results = append(results, status)
	}
	return results
}

// MissingRequired returns the names of required tools that are unavailable.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status.Name)
		}
	}
	return missing
}

func firstLine(output string) string {
	for line := range strings.SplitSeq(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
