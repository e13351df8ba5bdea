package utils

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger configures the global zerolog logger for console output on w.
// An empty or unknown level falls back to info; silent disables all output.
func SetupLogger(w io.Writer, level string, silent bool) {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}

	// Move "layer" field to the prefix of the message with colors
	output.FormatPrepare = func(evt map[string]interface{}) error {
		layer, ok := evt["layer"].(string)
		if !ok {
			return nil
		}
		var color string
		switch layer {
		case "MAIN":
			color = "\x1b[35m" // Magenta
		case "GEN":
			color = "\x1b[32m" // Green
		case "WRITE":
			color = "\x1b[36m" // Cyan
		case "CATALOG":
			color = "\x1b[33m" // Yellow
		default:
			color = "\x1b[37m" // White
		}
		prefix := fmt.Sprintf("%s[%-7s]\x1b[0m", color, layer)
		if msg, ok := evt["message"].(string); ok {
			evt["message"] = fmt.Sprintf("%s %s", prefix, msg)
		} else {
			evt["message"] = prefix
		}
		delete(evt, "layer")
		return nil
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if silent {
		lvl = zerolog.Disabled
	}
	log.Logger = log.Output(output).Level(lvl)
}
