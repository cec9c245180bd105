package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutURL(t *testing.T) {
	_, err := New(context.Background(), DefaultConfig(""))
	assert.ErrorIs(t, err, ErrNotConfigured)

	var p *Pool
	assert.ErrorIs(t, p.Health(context.Background()), ErrNotConfigured)
	assert.NoError(t, p.Close())
}

func TestConnConfig(t *testing.T) {
	t.Run("applies session defaults", func(t *testing.T) {
		cfg, err := connConfig(DefaultConfig("postgres://desk:pw@localhost:5432/lostfound"))
		require.NoError(t, err)
		assert.Equal(t, "lostfound", cfg.RuntimeParams["application_name"])
		assert.Equal(t, "10000", cfg.RuntimeParams["statement_timeout"])
		assert.Equal(t, "lostfound", cfg.Database)
	})

	t.Run("url parameters win", func(t *testing.T) {
		c := DefaultConfig("postgres://localhost/lostfound?application_name=worker&statement_timeout=500")
		c.StatementTimeout = time.Minute
		cfg, err := connConfig(c)
		require.NoError(t, err)
		assert.Equal(t, "worker", cfg.RuntimeParams["application_name"])
		assert.Equal(t, "500", cfg.RuntimeParams["statement_timeout"])
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := connConfig(DefaultConfig("postgres://%zz"))
		assert.Error(t, err)
	})
}
