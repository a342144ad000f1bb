package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"chapterize/internal/batch"
	"chapterize/internal/download"
	"chapterize/internal/logging"
)

// batchProgress renders batch observer callbacks. Terminals get a progress
// bar; anything else gets one line per finished file.
type batchProgress struct {
	mu  sync.Mutex
	w   io.Writer
	bar *progressbar.ProgressBar
	tty bool
}

func newBatchProgress(w io.Writer) *batchProgress {
	return &batchProgress{w: w, tty: isTerminal(w)}
}

func (p *batchProgress) StateChanged(state batch.State, index, total int, file string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.tty || total <= 0 {
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionClearOnFinish(),
		)
	}
	if file != "" {
		p.bar.Describe(fmt.Sprintf("%-9s %s", state, file))
	}
}

func (p *batchProgress) ItemFinished(index, total int, item batch.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty && p.bar != nil {
		_ = p.bar.Add(1)
		return
	}
	fmt.Fprintf(p.w, "[%d/%d] %s: %s\n", index+1, total, item.FileName(), item.Outcome)
}

func (p *batchProgress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

// downloadProgress renders yt-dlp progress as a percentage bar on terminals
// and as sampled lines otherwise.
type downloadProgress struct {
	w       io.Writer
	tty     bool
	bar     *progressbar.ProgressBar
	phase   string
	sampler *logging.ProgressSampler
}

func newDownloadProgress(w io.Writer) *downloadProgress {
	return &downloadProgress{w: w, tty: isTerminal(w), sampler: logging.NewProgressSampler(25)}
}

func (p *downloadProgress) update(progress download.Progress) {
	if progress.Phase != p.phase {
		p.finish()
		p.phase = progress.Phase
		if !p.tty {
			fmt.Fprintf(p.w, "%s...\n", progress.Phase)
		}
	}
	if progress.Percent < 0 {
		return
	}
	if !p.tty {
		if p.sampler.ShouldLog(progress.Percent, progress.Phase) {
			fmt.Fprintf(p.w, "%s %.0f%%\n", progress.Phase, progress.Percent)
		}
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription(progress.Phase),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	_ = p.bar.Set(int(progress.Percent))
}

func (p *downloadProgress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		fmt.Fprintln(p.w)
		p.bar = nil
	}
}
