// Package logging builds the logrus logger of the command line tools.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/robert-malhotra/go-volume/internal/config"
)

// New returns a logger writing to w at the configured level. The auto
// format writes colored text to terminals and JSON everywhere else.
func New(cfg config.Config, w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid %sLOG_LEVEL: %w", config.Prefix, err)
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)

	switch cfg.LogFormat {
	case config.FormatJSON:
		l.SetFormatter(&logrus.JSONFormatter{})
	case config.FormatText:
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	default:
		if IsTerminal(w) {
			l.SetFormatter(&logrus.TextFormatter{ForceColors: true})
		} else {
			l.SetFormatter(&logrus.JSONFormatter{})
		}
	}
	return l, nil
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
