// Package key provides key identity types and parsing for captured input.
//
// This package defines the fundamental types for representing keyboard input:
//
//   - Key: Identifies a named, non-printable key (Escape, Enter, F1, Shift...)
//   - Identity: Either printable text or a named Key, decided once at capture
//
// # Key Names
//
// Key names can be written in multiple formats:
//
//   - Printable text: "a", "A", "1", "@"
//   - Canonical named keys: "Key.esc", "Key.space", "Key.page_up"
//   - Bracketed or bare names: "<Esc>", "<CR>", "Enter", "space", "ctrl"
//
// The canonical form written to macro files is the text itself for printable
// keys and "Key.<name>" for named keys.
package key
