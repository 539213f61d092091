package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShippedConfigIsValid(t *testing.T) {
	cfg, err := Load("../../configs/jobrole.yaml")
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	assert.True(t, cfg.Artifacts.Watch)
	assert.Len(t, cfg.Fallback.Keywords, 11)
}
