package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeTLSConfig(t *testing.T) {
	t.Run("Disabled", func(t *testing.T) {
		cfg, err := MakeTLSConfig("", "", "")
		require.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("MissingCA", func(t *testing.T) {
		_, err := MakeTLSConfig(filepath.Join(t.TempDir(), "ca.pem"), "", "")
		assert.Error(t, err)
	})

	t.Run("InvalidCA", func(t *testing.T) {
		ca := filepath.Join(t.TempDir(), "ca.pem")
		require.NoError(t, os.WriteFile(ca, []byte("not a certificate"), 0o600))
		_, err := MakeTLSConfig(ca, "", "")
		assert.Error(t, err)
	})
}
