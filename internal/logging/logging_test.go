package logging_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"

	"github.com/nuln/vfc/internal/logging"
)

func TestSetup(t *testing.T) {
	require := require.New(t)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.TraceLevel) })

	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "vfc.log")
	closer, err := logging.Setup(logging.Options{Level: "warn", File: path}, &console)
	require.NoError(err)

	log.Info().Msg("hidden")
	log.Warn().Str("stream", "a.dat").Msg("shown")
	require.NoError(closer.Close())

	require.NotContains(console.String(), "hidden")
	require.Contains(console.String(), "shown")

	data, err := os.ReadFile(path)
	require.NoError(err)
	require.Contains(string(data), `"stream":"a.dat"`)
	require.NotContains(string(data), "hidden")
}

func TestSetupBadLevel(t *testing.T) {
	_, err := logging.Setup(logging.Options{Level: "loud"}, &bytes.Buffer{})
	require.Error(t, err)
}
