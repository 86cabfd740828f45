// SPDX-License-Identifier: MIT

// Package tui is the interactive terminal front end: a piano keyboard that
// drives the synth session and a live view of the analyzed spectrum.
package tui

import (
	"fmt"
	"strings"
	"time"

	applog "minipiano/internal/log"
	"minipiano/internal/oscillator"
	"minipiano/internal/spectrum"
	"minipiano/internal/synth"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))
)

const (
	barGlyph       = "█"
	defaultWidth   = 80
	defaultHeight  = 24
	chromeRows     = 8 // Title, status lines, help and spacing.
	minSpectrumRow = 2
)

// Spectrum is the read side of the analyzer. *spectrum.Analyzer satisfies it.
type Spectrum interface {
	GetMagnitudesInto(dest []float64) error
	GetFFTSize() int
	Method() spectrum.Method
	CycleMethod() spectrum.Method
}

type tickMsg time.Time

// PianoModel is the Bubble Tea model for the piano screen.
type PianoModel struct {
	session  *synth.Session
	spectrum Spectrum
	refresh  time.Duration
	scale    float64

	keys       keyMap
	help       help.Model
	magnitudes []float64
	width      int
	height     int
	err        error
}

// NewPianoModel creates the piano screen. refresh is the spectrum redraw
// period and scale converts magnitudes to rows.
func NewPianoModel(session *synth.Session, sp Spectrum, refresh time.Duration, scale float64) PianoModel {
	return PianoModel{
		session:    session,
		spectrum:   sp,
		refresh:    refresh,
		scale:      scale,
		keys:       newKeyMap(),
		help:       help.New(),
		magnitudes: make([]float64, sp.GetFFTSize()),
		width:      defaultWidth,
		height:     defaultHeight,
	}
}

// Init starts the redraw ticker.
func (m PianoModel) Init() tea.Cmd {
	return m.tick()
}

func (m PianoModel) tick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles input and redraw ticks.
func (m PianoModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case tickMsg:
		if err := m.spectrum.GetMagnitudesInto(m.magnitudes); err != nil {
			applog.Errorf("TUI: Error getting magnitudes: %v", err)
		}
		return m, m.tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m PianoModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.TransposeUp):
		m.session.TransposeUp()

	case key.Matches(msg, m.keys.TransposeDown):
		m.session.TransposeDown()

	case key.Matches(msg, m.keys.AmplitudeUp):
		m.session.IncreaseAmplitude()

	case key.Matches(msg, m.keys.AmplitudeDown):
		m.session.DecreaseAmplitude()

	case key.Matches(msg, m.keys.CycleMethod):
		m.spectrum.CycleMethod()

	default:
		for i, b := range m.keys.Waveforms {
			if key.Matches(msg, b) {
				m.err = m.session.SelectWaveform(oscillator.Waveform(i))
				return m, nil
			}
		}
		for semitone, b := range m.keys.Notes {
			if key.Matches(msg, b) {
				_, m.err = m.session.SelectNote(semitone)
				return m, nil
			}
		}
	}

	return m, nil
}

// View renders the screen.
func (m PianoModel) View() string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("minipiano"))
	sb.WriteString("\n\n")

	freq := m.session.Frequency()
	sb.WriteString(highlightStyle.Render(fmt.Sprintf("%f Hz", freq)))
	sb.WriteString(infoStyle.Render(fmt.Sprintf("  %s", synth.NoteName(freq))))
	sb.WriteString("\n")
	sb.WriteString(infoStyle.Render(fmt.Sprintf("base %.2f Hz (%s) • %s • amplitude %.2f • %s",
		m.session.BaseFrequency(), synth.NoteName(m.session.BaseFrequency()),
		m.session.Waveform(), m.session.Amplitude(), m.spectrum.Method())))
	sb.WriteString("\n\n")

	rows := max(m.height-chromeRows, minSpectrumRow)
	sb.WriteString(renderSpectrum(m.magnitudes, m.width, rows, m.scale))
	sb.WriteString("\n")

	if m.err != nil {
		sb.WriteString(errorStyle.Render(m.err.Error()))
		sb.WriteString("\n")
	}
	sb.WriteString(m.help.ShortHelpView(m.keys.shortHelp()))

	return sb.String()
}

// renderSpectrum draws the usable half of mags as bars mirrored around a
// horizontal center line. A bar is mag*scale rows tall on each side,
// clipped to the space available.
func renderSpectrum(mags []float64, width, rows int, scale float64) string {
	bins := len(mags)/2 + 1
	if len(mags) < 2 {
		bins = len(mags)
	}
	if bins == 0 || width <= 0 || rows <= 0 {
		return ""
	}

	colWidth := max(width/bins, 1)
	bins = min(bins, width)
	half := rows / 2

	heights := make([]int, bins)
	for i := range heights {
		heights[i] = min(int(mags[i]*scale+0.5), half)
	}

	var sb strings.Builder
	line := func(fill func(h int) bool) {
		for _, h := range heights {
			cell := " "
			if fill(h) {
				cell = barGlyph
			}
			sb.WriteString(strings.Repeat(cell, colWidth))
		}
		sb.WriteString("\n")
	}

	for r := half; r >= 1; r-- {
		line(func(h int) bool { return h >= r })
	}
	line(func(int) bool { return true })
	for r := 1; r <= half; r++ {
		line(func(h int) bool { return h >= r })
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

// Run starts the piano TUI and blocks until the user quits.
func Run(session *synth.Session, sp Spectrum, refresh time.Duration, scale float64) error {
	p := tea.NewProgram(
		NewPianoModel(session, sp, refresh, scale),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
