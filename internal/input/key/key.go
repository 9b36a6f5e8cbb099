package key

import (
	"fmt"
	"strings"
)

// Key represents a named, non-printable keyboard key.
// Printable characters are carried as text in Identity instead.
type Key uint16

const (
	// KeyNone represents no named key.
	KeyNone Key = iota

	// Special keys
	KeyEscape
	KeyEnter
	KeyTab
	KeyBackspace
	KeyDelete
	KeyInsert
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown

	// Arrow keys
	KeyUp
	KeyDown
	KeyLeft
	KeyRight

	// Function keys
	KeyF1
	KeyF2
	KeyF3
	KeyF4
	KeyF5
	KeyF6
	KeyF7
	KeyF8
	KeyF9
	KeyF10
	KeyF11
	KeyF12

	// Other special keys
	KeySpace
	KeyPause
	KeyPrintScreen
	KeyScrollLock
	KeyNumLock
	KeyCapsLock

	// Modifier keys, reported on their own by global hooks.
	KeyShift
	KeyCtrl
	KeyAlt
	KeyCmd

	keyCount
)

// KeyUnknown marks a named key without a constant in this package. The
// identity carries the original name in its Text.
const KeyUnknown Key = 0xFFFF

// keyNames holds the canonical lowercase name of every named key.
var keyNames = [...]string{
	KeyNone:        "none",
	KeyEscape:      "esc",
	KeyEnter:       "enter",
	KeyTab:         "tab",
	KeyBackspace:   "backspace",
	KeyDelete:      "delete",
	KeyInsert:      "insert",
	KeyHome:        "home",
	KeyEnd:         "end",
	KeyPageUp:      "page_up",
	KeyPageDown:    "page_down",
	KeyUp:          "up",
	KeyDown:        "down",
	KeyLeft:        "left",
	KeyRight:       "right",
	KeyF1:          "f1",
	KeyF2:          "f2",
	KeyF3:          "f3",
	KeyF4:          "f4",
	KeyF5:          "f5",
	KeyF6:          "f6",
	KeyF7:          "f7",
	KeyF8:          "f8",
	KeyF9:          "f9",
	KeyF10:         "f10",
	KeyF11:         "f11",
	KeyF12:         "f12",
	KeySpace:       "space",
	KeyPause:       "pause",
	KeyPrintScreen: "print_screen",
	KeyScrollLock:  "scroll_lock",
	KeyNumLock:     "num_lock",
	KeyCapsLock:    "caps_lock",
	KeyShift:       "shift",
	KeyCtrl:        "ctrl",
	KeyAlt:         "alt",
	KeyCmd:         "cmd",
}

// String returns the canonical lowercase name for the key.
func (k Key) String() string {
	if k < keyCount {
		return keyNames[k]
	}
	if k == KeyUnknown {
		return "unknown"
	}
	return fmt.Sprintf("key(%d)", uint16(k))
}

// IsValid returns true if k is a named key other than KeyNone.
func (k Key) IsValid() bool {
	return k > KeyNone && k < keyCount
}

// IsFunctionKey returns true if this is a function key (F1-F12).
func (k Key) IsFunctionKey() bool {
	return k >= KeyF1 && k <= KeyF12
}

// keyNameMap maps key names and aliases (lowercase) to Key values.
var keyNameMap = map[string]Key{
	"escape":       KeyEscape,
	"esc":          KeyEscape,
	"enter":        KeyEnter,
	"return":       KeyEnter,
	"cr":           KeyEnter,
	"tab":          KeyTab,
	"backspace":    KeyBackspace,
	"bs":           KeyBackspace,
	"delete":       KeyDelete,
	"del":          KeyDelete,
	"insert":       KeyInsert,
	"ins":          KeyInsert,
	"home":         KeyHome,
	"end":          KeyEnd,
	"page_up":      KeyPageUp,
	"pageup":       KeyPageUp,
	"pgup":         KeyPageUp,
	"page_down":    KeyPageDown,
	"pagedown":     KeyPageDown,
	"pgdn":         KeyPageDown,
	"up":           KeyUp,
	"down":         KeyDown,
	"left":         KeyLeft,
	"right":        KeyRight,
	"f1":           KeyF1,
	"f2":           KeyF2,
	"f3":           KeyF3,
	"f4":           KeyF4,
	"f5":           KeyF5,
	"f6":           KeyF6,
	"f7":           KeyF7,
	"f8":           KeyF8,
	"f9":           KeyF9,
	"f10":          KeyF10,
	"f11":          KeyF11,
	"f12":          KeyF12,
	"space":        KeySpace,
	"pause":        KeyPause,
	"print_screen": KeyPrintScreen,
	"printscreen":  KeyPrintScreen,
	"scroll_lock":  KeyScrollLock,
	"scrolllock":   KeyScrollLock,
	"num_lock":     KeyNumLock,
	"numlock":      KeyNumLock,
	"caps_lock":    KeyCapsLock,
	"capslock":     KeyCapsLock,
	"shift":        KeyShift,
	"shift_l":      KeyShift,
	"shift_r":      KeyShift,
	"ctrl":         KeyCtrl,
	"ctrl_l":       KeyCtrl,
	"ctrl_r":       KeyCtrl,
	"control":      KeyCtrl,
	"alt":          KeyAlt,
	"alt_l":        KeyAlt,
	"alt_r":        KeyAlt,
	"alt_gr":       KeyAlt,
	"cmd":          KeyCmd,
	"cmd_l":        KeyCmd,
	"cmd_r":        KeyCmd,
	"meta":         KeyCmd,
	"super":        KeyCmd,
}

// KeyFromName returns the Key for a given name (case-insensitive).
// Returns KeyNone if the name is not recognized.
func KeyFromName(name string) Key {
	name = strings.ToLower(strings.TrimSpace(name))
	if k, ok := keyNameMap[name]; ok {
		return k
	}
	return KeyNone
}
