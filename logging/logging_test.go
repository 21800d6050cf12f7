package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_Disabled_Discards(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Enabled: true, Writer: &buf, Level: zerolog.DebugLevel})
	Init(Options{}) // back to discard

	GC().Info().Msg("should vanish")
	if buf.Len() != 0 {
		t.Fatalf("expected no output after disabling, got %q", buf.String())
	}
}

func TestForCategory_StampsField(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Enabled: true, Writer: &buf, Level: zerolog.DebugLevel})
	defer Init(Options{})

	Memory().Info().Int("bytes", 64).Msg("allocated")

	out := buf.String()
	if !strings.Contains(out, `"category":"memory"`) {
		t.Fatalf("missing category field: %s", out)
	}
	if !strings.Contains(out, `"bytes":64`) {
		t.Fatalf("missing event field: %s", out)
	}
}

func TestForCategory_DirectChains(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Enabled: true, Writer: &buf, Level: zerolog.TraceLevel})
	defer Init(Options{})

	// Every level method must be reachable on the returned logger
	// without binding it to a variable first.
	GC().Trace().Msg("t")
	GC().Debug().Msg("d")
	Memory().Info().Msg("i")
	Memory().Warn().Msg("w")
	Pool().Error().Msg("e")

	if got := strings.Count(buf.String(), "\n"); got != 5 {
		t.Fatalf("expected 5 events, got %d: %s", got, buf.String())
	}
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Enabled: true, Writer: &buf, Level: zerolog.WarnLevel})
	defer Init(Options{})

	Pool().Debug().Msg("below threshold")
	if buf.Len() != 0 {
		t.Fatalf("debug event should be filtered, got %q", buf.String())
	}

	Pool().Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Fatal("warn event should be emitted")
	}
}
