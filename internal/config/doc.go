// Package config loads the macro recorder's configuration.
//
// Settings are layered with higher layers overriding lower:
//
//	┌──────────────────────────────┐
//	│  5. Command line flags       │  ← Highest priority
//	├──────────────────────────────┤
//	│  4. MACROREC_* environment   │
//	├──────────────────────────────┤
//	│  3. .env in the working dir  │
//	├──────────────────────────────┤
//	│  2. config.toml              │  ← ~/.config/macrorec/config.toml
//	├──────────────────────────────┤
//	│  1. Built-in defaults        │  ← Lowest priority
//	└──────────────────────────────┘
//
// Command line flags are applied by the cli package after Load returns.
//
// An example config.toml:
//
//	[log]
//	level = "debug"
//	format = "console"
//
//	[profiles]
//	dirs = ["~/games/profiles"]
//	watch = true
//
//	[playback]
//	tick = "100ms"
//	preset_delay = "500ms"
//
//	[storage]
//	autosave = "recording.json"
//	library = "~/.local/share/macrorec/library.db"
package config
