package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cvhariharan/fedactor/config"
	"github.com/cvhariharan/fedactor/keys"
	"github.com/cvhariharan/fedactor/store"
)

func TestLocalInstanceCreatedOnce(t *testing.T) {
	s := store.NewMemory()
	cfg := config.DefaultConfig()
	cfg.Domain = "example.com"

	first, err := localInstance(context.Background(), s, cfg)
	require.NoError(t, err)
	assert.True(t, first.Local)

	second, err := localInstance(context.Background(), s, cfg)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestKeygenCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := keygenCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	_, err := keys.ParsePublicKey(out.String())
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "RSA PRIVATE KEY")
}

func TestNewLogger(t *testing.T) {
	_, err := newLogger(config.LogConfig{Level: "debug", Development: true})
	assert.NoError(t, err)
	_, err = newLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}
