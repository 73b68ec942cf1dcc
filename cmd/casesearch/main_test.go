package main

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"casesearch/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		env   string
		debug bool
		json  bool
	}{
		{config.EnvLocal, true, false},
		{config.EnvDev, true, true},
		{config.EnvProd, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			var buf bytes.Buffer
			log := setupLogger(tt.env, &buf)
			require.NotNil(t, log)

			assert.Equal(t, tt.debug, log.Enabled(context.Background(), slog.LevelDebug))

			log.Info("hello")
			assert.Equal(t, tt.json, bytes.HasPrefix(buf.Bytes(), []byte("{")))
		})
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, cmd := range []interface{ Name() string }{tuiCmd(), serveCmd(), searchCmd()} {
		assert.NotEmpty(t, cmd.Name())
	}

	search := searchCmd()
	assert.NotNil(t, search.Flags().Lookup("from"))
	assert.NotNil(t, search.Flags().Lookup("to"))
	assert.NotNil(t, search.Flags().Lookup("details"))
	assert.Error(t, search.Args(search, []string{"a", "b"}))
}
