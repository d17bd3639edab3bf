package render

import "github.com/atotto/clipboard"

// Clipboard receives copied email text.
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the OS clipboard.
type SystemClipboard struct{}

// WriteAll implements Clipboard.
func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// SystemClipboardAvailable reports whether the OS clipboard can be used.
func SystemClipboardAvailable() bool {
	return !clipboard.Unsupported
}
