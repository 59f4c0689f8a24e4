package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// WriterSink returns a sink that writes each formatted line to w.
func WriterSink(w io.Writer) Sink {
	return func(_ Level, line string) bool {
		_, err := io.WriteString(w, line+"\n")
		return err == nil
	}
}

// ZerologSink returns a sink that forwards entries into a structured
// zerolog logger at the matching severity.
func ZerologSink(zl zerolog.Logger) Sink {
	return func(level Level, line string) bool {
		zl.WithLevel(zerologLevel(level)).Msg(line)
		return true
	}
}

func zerologLevel(l Level) zerolog.Level {
	switch l {
	case LevelFatal:
		// fatal would os.Exit; report as error and keep the process
		return zerolog.ErrorLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelDebug, LevelTest:
		return zerolog.DebugLevel
	}
	return zerolog.NoLevel
}
