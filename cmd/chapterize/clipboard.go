package main

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// Clipboard access goes through these hooks so tests never touch the
// system clipboard.
var (
	readClipboard  = clipboard.ReadAll
	writeClipboard = clipboard.WriteAll
)

func clipboardText() (string, error) {
	text, err := readClipboard()
	if err != nil {
		return "", fmt.Errorf("read clipboard: %w", err)
	}
	return text, nil
}

func copyToClipboard(text string) error {
	if err := writeClipboard(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}
