// Package clipboard bridges to the host operating system clipboard.
//
// Reads and writes can fail on headless hosts or when the clipboard holds
// non-text content. Failures are reported as ErrUnavailable so callers can
// tell "clipboard was empty" apart from "clipboard could not be read";
// presentation code is free to ignore the error.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrUnavailable reports that the host clipboard could not be accessed or
// holds no text content.
var ErrUnavailable = errors.New("clipboard unavailable")

// Read returns the text content of the host clipboard.
func Read() (string, error) {
	if clipboard.Unsupported {
		return "", fmt.Errorf("%w: no clipboard on this host", ErrUnavailable)
	}
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return text, nil
}

// Write places text on the host clipboard. Best-effort; callers may ignore
// the returned error.
func Write(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("%w: no clipboard on this host", ErrUnavailable)
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
