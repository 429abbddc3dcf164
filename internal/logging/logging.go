// Package logging provides the structured logger used by the overlay
// layer. The format decoders and the VFS namespace do not log.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the minimal structured-logging surface the rest of the module
// depends on, satisfied by *logrus.Logger and *logrus.Entry alike.
type Logger = logrus.FieldLogger

// New returns a logrus-backed logger with fields conventions used throughout
// the module (component name, path).
func New() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.InfoLevel)
	return log
}

// Disabled returns a logger that discards everything, for library consumers
// that don't want output.
func Disabled() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// For scopes a logger to a component, mirroring spicy's "stage" log fields.
func For(log Logger, component string) Logger {
	if log == nil {
		log = Disabled()
	}
	return log.WithField("component", component)
}
