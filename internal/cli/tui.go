package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/matzehuels/gdsfill/pkg/filler"
	"github.com/matzehuels/gdsfill/pkg/pipeline"
)

// Board styles
var (
	boardNameStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorWhite).Width(10)
	boardPendingStyle = lipgloss.NewStyle().Foreground(colorDim)
	boardActiveStyle  = lipgloss.NewStyle().Foreground(colorGray)
	boardMergedStyle  = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
)

const (
	glyphExported = "·"
	glyphPrepared = "○"
	glyphFilled   = "■"
	glyphSkipped  = "□"
	glyphFailed   = "✗"

	defaultBoardWidth = 80
)

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// =============================================================================
// tileBoard - Live per-tile status board
// =============================================================================

// tileEventMsg carries a pipeline event into the board.
type tileEventMsg pipeline.Event

// runDoneMsg ends the board once the run has returned.
type runDoneMsg struct{}

// tileBoard is the bubbletea model showing the state of every tile.
type tileBoard struct {
	layers  []*boardLayer
	byName  map[string]*boardLayer
	cancel  context.CancelFunc
	width   int
	done    bool
	aborted bool
}

// boardLayer keeps tiles in the order they were exported.
type boardLayer struct {
	name  string
	keys  []string
	tiles map[string]pipeline.Event
	last  *pipeline.Event
}

func newTileBoard(cancel context.CancelFunc) *tileBoard {
	return &tileBoard{
		byName: make(map[string]*boardLayer),
		cancel: cancel,
		width:  defaultBoardWidth,
	}
}

func (b *tileBoard) Init() tea.Cmd {
	return nil
}

func (b *tileBoard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			b.aborted = true
			b.cancel()
			return b, tea.Quit
		}
	case tea.WindowSizeMsg:
		b.width = msg.Width
	case tileEventMsg:
		b.apply(pipeline.Event(msg))
	case runDoneMsg:
		b.done = true
		return b, tea.Quit
	}
	return b, nil
}

func (b *tileBoard) apply(ev pipeline.Event) {
	l, ok := b.byName[ev.Layer]
	if !ok {
		l = &boardLayer{name: ev.Layer, tiles: make(map[string]pipeline.Event)}
		b.byName[ev.Layer] = l
		b.layers = append(b.layers, l)
	}
	if _, seen := l.tiles[ev.Tile.Key]; !seen {
		l.keys = append(l.keys, ev.Tile.Key)
	}
	l.tiles[ev.Tile.Key] = ev
	if ev.Stage == pipeline.StageFilled || ev.Status == filler.StatusFailed {
		l.last = &ev
	}
}

func (b *tileBoard) View() string {
	var sb strings.Builder

	sb.WriteString(StyleTitle.Render("Filling tiles"))
	if !b.done && !b.aborted {
		sb.WriteString(StyleDim.Render("  q abort"))
	}
	sb.WriteString("\n\n")

	cols := max(b.width-12, 10)
	for _, l := range b.layers {
		sb.WriteString(l.view(cols))
	}
	if b.aborted {
		sb.WriteString(StyleWarning.Render("aborting..."))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (l *boardLayer) view(cols int) string {
	var sb strings.Builder
	var filled, cached, merged int
	for i, key := range l.keys {
		if i > 0 && i%cols == 0 {
			sb.WriteString("\n" + strings.Repeat(" ", 11))
		} else if i == 0 {
			sb.WriteString(boardNameStyle.Render(l.name) + " ")
		}
		ev := l.tiles[key]
		sb.WriteString(glyph(ev))
		switch ev.Stage {
		case pipeline.StageFilled:
			filled++
		case pipeline.StageMerged:
			filled++
			merged++
		}
		if ev.Cached {
			cached++
		}
	}
	sb.WriteString("\n")

	stats := []string{fmt.Sprintf("%d/%d filled", filled, len(l.keys))}
	if cached > 0 {
		stats = append(stats, styleCached.Render(fmt.Sprintf("%d cached", cached)))
	}
	if merged > 0 {
		stats = append(stats, boardMergedStyle.Render("merged"))
	}
	sb.WriteString(strings.Repeat(" ", 11) + StyleDim.Render(strings.Join(stats, " · ")) + "\n")
	if l.last != nil {
		sb.WriteString(strings.Repeat(" ", 11) + StyleDim.Render(tileLine(*l.last)) + "\n")
	}
	sb.WriteString("\n")
	return sb.String()
}

// glyph renders the state of one tile.
func glyph(ev pipeline.Event) string {
	switch {
	case ev.Status == filler.StatusFailed:
		return StyleError.Render(glyphFailed)
	case ev.Stage == pipeline.StageExported:
		return boardPendingStyle.Render(glyphExported)
	case ev.Stage == pipeline.StagePrepared:
		return boardActiveStyle.Render(glyphPrepared)
	case ev.Status == filler.StatusSkipped:
		return boardPendingStyle.Render(glyphSkipped)
	case ev.Cached:
		return styleCached.Render(glyphFilled)
	default:
		return StyleSuccess.Render(glyphFilled)
	}
}

// tileLine describes a finished tile in one line.
func tileLine(ev pipeline.Event) string {
	line := fmt.Sprintf("%s %s %s", ev.Layer, ev.Tile.Label(), ev.Status)
	if ev.Message != "" {
		line += " " + ev.Message
	}
	if ev.Cached {
		line += " (cached)"
	}
	return line
}

// printTileEvent is the progress callback used when no board is shown.
func printTileEvent(ev pipeline.Event) {
	switch {
	case ev.Status == filler.StatusFailed:
		printError("%s", tileLine(ev))
	case ev.Stage == pipeline.StageFilled:
		printInfo("%s", tileLine(ev))
	}
}
