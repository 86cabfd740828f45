// SPDX-License-Identifier: MIT
package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

// noteKeys follows a piano layout on the home row, black keys above:
//
//	 w e   t y u
//	a s d f g h j k
var noteKeys = [...]string{"a", "w", "s", "e", "d", "f", "t", "g", "y", "h", "u", "j", "k"}

// keyMap lists every binding the piano understands.
type keyMap struct {
	Notes         [len(noteKeys)]key.Binding
	TransposeUp   key.Binding
	TransposeDown key.Binding
	Waveforms     [4]key.Binding
	AmplitudeUp   key.Binding
	AmplitudeDown key.Binding
	CycleMethod   key.Binding
	Quit          key.Binding
}

func newKeyMap() keyMap {
	km := keyMap{
		TransposeUp: key.NewBinding(
			key.WithKeys("z"),
			key.WithHelp("z", "base +½ tone"),
		),
		TransposeDown: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "base -½ tone"),
		),
		AmplitudeUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+/-", "volume"),
		),
		AmplitudeDown: key.NewBinding(
			key.WithKeys("-", "_"),
		),
		CycleMethod: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "analysis"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
	for i, k := range noteKeys {
		km.Notes[i] = key.NewBinding(key.WithKeys(k))
	}
	for i := range km.Waveforms {
		digit := string(rune('1' + i))
		km.Waveforms[i] = key.NewBinding(key.WithKeys(digit))
	}
	km.Waveforms[0].SetHelp("1-4", "waveform")
	return km
}

// shortHelp returns the bindings shown in the footer.
func (km keyMap) shortHelp() []key.Binding {
	return []key.Binding{km.TransposeUp, km.TransposeDown, km.Waveforms[0], km.AmplitudeUp, km.CycleMethod, km.Quit}
}
