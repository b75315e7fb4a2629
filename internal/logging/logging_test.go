// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSetupVerbosityLevels(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zerolog.Level
	}{
		{0, zerolog.WarnLevel},
		{1, zerolog.InfoLevel},
		{2, zerolog.DebugLevel},
		{3, zerolog.TraceLevel},
		{9, zerolog.TraceLevel},
	}
	for _, tt := range tests {
		Setup(tt.verbosity, &bytes.Buffer{})
		assert.Equal(t, tt.want, zerolog.GlobalLevel(), "verbosity %d", tt.verbosity)
	}
}

func TestComponentTagsOutput(t *testing.T) {
	var buf bytes.Buffer
	Setup(1, &buf)

	log := Component("engine")
	log.Info().Msg("document scanned")

	out := buf.String()
	assert.Contains(t, out, "component=")
	assert.Contains(t, out, "engine")
	assert.Contains(t, out, "document scanned")
}
