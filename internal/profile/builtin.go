package profile

import (
	"github.com/ItvordRE/MacroRecorder/internal/input/key"
	"github.com/ItvordRE/MacroRecorder/internal/input/macro"
	"github.com/ItvordRE/MacroRecorder/internal/input/mouse"
)

func press(spec string) macro.Event {
	return macro.NewKeyPress(key.MustParse(spec))
}

func presses(specs ...string) []macro.Event {
	events := make([]macro.Event, len(specs))
	for i, s := range specs {
		events[i] = press(s)
	}
	return events
}

// CS2 returns the Counter-Strike 2 profile.
func CS2() *Static {
	return NewStatic("CS2",
		WithKeyMap(map[string]string{
			"shoot":   "left_click",
			"reload":  "r",
			"jump":    "space",
			"crouch":  "ctrl",
			"sprint":  "shift",
			"knife":   "1",
			"pistol":  "2",
			"primary": "3",
			"use":     "e",
			"inspect": "f",
		}),
		WithCoords(map[string]mouse.Position{
			"buy_menu":   mouse.Pos(960, 540),
			"defuse_kit": mouse.Pos(100, 100),
			"map_center": mouse.Pos(960, 540),
			"radar":      mouse.Pos(1750, 150),
		}),
		WithPresets(
			Preset{Name: "Quick Buy AK47", Actions: []macro.Event{
				press("b"),
				macro.NewClick(800, 400, mouse.ButtonLeft),
				macro.NewClick(900, 300, mouse.ButtonLeft),
			}},
			Preset{Name: "Quick Weapon Switch", Actions: presses("1", "2", "3")},
		),
	)
}

// Dota2 returns the Dota 2 profile.
func Dota2() *Static {
	return NewStatic("Dota 2",
		WithKeyMap(map[string]string{
			"attack": "a",
			"move":   "s",
			"cast_q": "q",
			"cast_w": "w",
			"cast_e": "e",
			"cast_r": "r",
			"item_1": "d",
			"item_2": "f",
			"item_3": "g",
			"item_4": "z",
			"item_5": "x",
			"item_6": "c",
		}),
		WithPresets(
			Preset{Name: "Combo Q-W-E", Actions: presses("q", "w", "e")},
			Preset{Name: "Use All Items", Actions: presses("d", "f", "g")},
		),
	)
}

// OSU returns the osu! profile.
func OSU() *Static {
	return NewStatic("OSU!",
		WithKeyMap(map[string]string{
			"click_left":  "z",
			"click_right": "x",
			"smoke":       "c",
			"skip":        "space",
		}),
		WithPresets(
			Preset{Name: "Fast Clicking", Actions: presses("z", "x", "z", "x")},
		),
	)
}

// BladeAndSoul returns the Blade & Soul profile.
func BladeAndSoul() *Static {
	return NewStatic("Blade&Soul",
		WithKeyMap(map[string]string{
			"attack_1": "1",
			"attack_2": "2",
			"attack_3": "3",
			"attack_4": "4",
			"dodge":    "f",
			"block":    "q",
			"special":  "r",
		}),
		WithPresets(
			Preset{Name: "Basic Attack Combo", Actions: presses("1", "2", "3", "4")},
		),
	)
}

// Builtins returns the built-in game profiles in display order.
func Builtins() []Profile {
	return []Profile{CS2(), Dota2(), OSU(), BladeAndSoul()}
}
