package chapters

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CompanionExt is the extension of companion chapter files.
const CompanionExt = ".txt"

// GeneratedSuffix is the base-name suffix of new-mode outputs, so
// "<base>_chapters.txt" is the companion name of such an output.
const GeneratedSuffix = "_chapters"

// CompanionPath returns <dir>/<base>.txt for a video path.
func CompanionPath(videoPath string) string {
	return trimExt(videoPath) + CompanionExt
}

// RelatedPaths lists every chapter text file associated with a video: its
// companion and the companion of its new-mode output.
func RelatedPaths(videoPath string) []string {
	base := trimExt(videoPath)
	return []string{base + CompanionExt, base + GeneratedSuffix + CompanionExt}
}

func trimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// ReadCompanion loads a companion file as text. UTF-8 with or without BOM is
// accepted, and UTF-16 is decoded when a BOM announces it. A missing file is
// reported with os.ErrNotExist so callers can treat it as "no chapters".
func ReadCompanion(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return DecodeText(f)
}

// DecodeText reads r to completion and decodes it to UTF-8.
func DecodeText(r io.Reader) (string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, err := io.ReadAll(transform.NewReader(r, decoder))
	if err != nil {
		return "", fmt.Errorf("decode chapter text: %w", err)
	}
	return string(data), nil
}

// WriteCompanion writes list in canonical layout. The file is written to a
// temporary sibling first and renamed into place.
func WriteCompanion(path string, list List) error {
	return WriteCompanionText(path, list.Text())
}

// WriteCompanionText writes free-form chapter text the same way, ending it
// with a newline.
func WriteCompanionText(path, text string) error {
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp companion: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.WriteString(text); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write companion: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close companion: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod companion: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("replace companion: %w", err)
	}
	return nil
}

// RemoveRelated deletes the chapter text files for a video and returns the
// paths that were actually removed. Missing files are not an error.
func RemoveRelated(videoPath string) ([]string, error) {
	var removed []string
	var errs []error
	for _, path := range RelatedPaths(videoPath) {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed = append(removed, path)
		case errors.Is(err, os.ErrNotExist):
		default:
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}
