package render

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/pithecene-io/cicore/types"
)

// Color palette.
var (
	successColor = lipgloss.Color("#10B981") // Green
	warningColor = lipgloss.Color("#F59E0B") // Amber
	errorColor   = lipgloss.Color("#EF4444") // Red
	activeColor  = lipgloss.Color("#3B82F6") // Blue
	mutedColor   = lipgloss.Color("#6B7280") // Gray
)

// statusStyles colors status cells in table output.
type statusStyles struct {
	byStatus map[types.Status]lipgloss.Style
	fallback lipgloss.Style
}

// newStatusStyles binds the palette to out. noColor forces plain text;
// otherwise a writer that is not a terminal still gets 256-color output.
func newStatusStyles(out io.Writer, noColor, tty bool) *statusStyles {
	lr := lipgloss.NewRenderer(out)
	switch {
	case noColor:
		lr.SetColorProfile(termenv.Ascii)
	case !tty:
		lr.SetColorProfile(termenv.ANSI256)
	}

	fg := func(c lipgloss.Color) lipgloss.Style {
		return lr.NewStyle().Foreground(c)
	}
	return &statusStyles{
		byStatus: map[types.Status]lipgloss.Style{
			types.StatusFailed:   fg(errorColor).Bold(true),
			types.StatusCanceled: fg(warningColor),
			types.StatusWarning:  fg(warningColor),
			types.StatusSuccess:  fg(successColor),
			types.StatusRunning:  fg(activeColor),
			types.StatusPending:  fg(activeColor),
		},
		fallback: fg(mutedColor),
	}
}

func (s *statusStyles) render(st types.Status) string {
	style, ok := s.byStatus[st]
	if !ok {
		style = s.fallback
	}
	return style.Render(string(st))
}
