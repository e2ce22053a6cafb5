package client

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jrazmi/growlog/core/repositories"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5555")).Bold(true)
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272a4"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#ff5555")).
			Padding(0, 1)
)

type detail struct {
	key, value string
}

// describe breaks err into a title and key/value details.
func describe(err error) (string, []detail) {
	var (
		validation *repositories.ValidationError
		known      *repositories.KnownRequestError
		engine     *repositories.EngineError
		initErr    *repositories.InitializationError
		unknown    *repositories.UnknownRequestError
	)
	switch {
	case errors.As(err, &validation):
		return "Invalid query", []detail{{"path", validation.Path}, {"reason", validation.Reason}}
	case errors.As(err, &known):
		ds := []detail{{"message", known.Message}}
		keys := make([]string, 0, len(known.Meta))
		for k := range known.Meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v := known.Meta[k]
			if list, ok := v.([]string); ok {
				v = strings.Join(list, ", ")
			}
			ds = append(ds, detail{k, fmt.Sprint(v)})
		}
		return "Request failed (" + known.Code + ")", ds
	case errors.As(err, &initErr):
		title := "Initialization failed"
		if initErr.Code != "" {
			title += " (" + initErr.Code + ")"
		}
		return title, []detail{{"cause", initErr.Err.Error()}}
	case errors.As(err, &engine):
		return "Engine error", []detail{{"cause", engine.Err.Error()}}
	case errors.As(err, &unknown):
		return "Unknown request error", []detail{{"cause", unknown.Err.Error()}}
	}
	return "Error", []detail{{"cause", err.Error()}}
}

// FormatError renders err for display. Minimal is the error text on one
// line; colorless and pretty are a titled block, pretty with terminal styles.
func FormatError(format ErrorFormat, err error) string {
	if err == nil {
		return ""
	}
	if format == ErrorFormatMinimal {
		return err.Error()
	}

	title, details := describe(err)
	var b strings.Builder
	if format == ErrorFormatPretty {
		b.WriteString(titleStyle.Render(title))
	} else {
		b.WriteString(title)
	}
	b.WriteString("\n\n")
	b.WriteString("  " + err.Error())
	for _, d := range details {
		if d.value == "" {
			continue
		}
		b.WriteString("\n  ")
		if format == ErrorFormatPretty {
			b.WriteString(keyStyle.Render(d.key + ":"))
		} else {
			b.WriteString(d.key + ":")
		}
		b.WriteString(" " + d.value)
	}
	if format == ErrorFormatPretty {
		return boxStyle.Render(b.String())
	}
	return b.String()
}
