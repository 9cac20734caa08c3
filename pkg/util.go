// Package pkg holds helpers shared by the chessterm binaries.
package pkg

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// InitLog returns a logger tagged with component. Records go to the file at
// dest, or to stderr in console format when dest is empty. The returned
// closer releases the file.
func InitLog(dest, component string, level zerolog.Level) (zerolog.Logger, io.Closer, error) {
	var (
		w      io.Writer
		closer io.Closer = io.NopCloser(nil)
	)
	if dest == "" {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	} else {
		f, err := os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		w, closer = f, f
	}
	log := zerolog.New(w).Level(level).With().Timestamp().Str("component", component).Logger()
	return log, closer, nil
}
