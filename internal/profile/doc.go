// Package profile provides per-application profiles for the macro
// recorder.
//
// A Profile bundles a logical key map, named screen coordinates, preset
// action sequences and a pair of event hooks applied while recording and
// replaying. Base is the no-op profile. Built-in game profiles are
// registered by default; additional profiles come from Loaders, either
// registered Go providers or declarative profile documents found in
// search directories.
//
// Profile documents are data only. A document named dota2.toml,
// dota2.yaml or dota2.json provides the profile whose normalized id is
// "dota2":
//
//	name = "Dota 2"
//
//	[keys]
//	cast_q = "q"
//
//	[coords]
//	shop = { x = 1800, y = 1000 }
//
//	[[presets]]
//	name = "Combo QWE"
//	actions = [
//	    { type = "key_press", key = "q" },
//	    { type = "key_press", key = "w" },
//	    { type = "key_press", key = "e" },
//	]
//
// Registry.Resolve never fails hard: an unknown name yields Base together
// with ErrProfileNotFound.
package profile
