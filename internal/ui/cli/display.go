package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	coreerrors "dotdeploy/internal/core/errors"

	"github.com/charmbracelet/lipgloss"
)

var (
	errorTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F87171"))

	errorCodeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	errorDetailStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#64748B")).
				PaddingLeft(2)
)

// ErrorDisplay renders deployment errors for a terminal.
type ErrorDisplay struct {
	out io.Writer
}

func NewErrorDisplay(out io.Writer) *ErrorDisplay {
	if out == nil {
		out = os.Stderr
	}
	return &ErrorDisplay{out: out}
}

func (d *ErrorDisplay) DisplayError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(d.out, FormatError(err))
}

// FormatError renders err as a title line followed by one line per context
// entry. Domain errors show their code.
func FormatError(err error) string {
	var b strings.Builder
	b.WriteString(errorTitleStyle.Render("[dotdeploy] Error"))

	var de *coreerrors.DomainError
	if !errors.As(err, &de) {
		b.WriteString(" ")
		b.WriteString(err.Error())
		return b.String()
	}

	b.WriteString(" ")
	b.WriteString(errorCodeStyle.Render(string(de.Code)))
	b.WriteString(" ")
	b.WriteString(de.Message)
	if de.Err != nil {
		b.WriteString(": ")
		b.WriteString(de.Err.Error())
	}

	keys := make([]string, 0, len(de.Context))
	for k := range de.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString("\n")
		b.WriteString(errorDetailStyle.Render(fmt.Sprintf("%s: %v", k, de.Context[k])))
	}
	return b.String()
}
