package Config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("APP_ENV", "")
	t.Setenv("APP_PORT", "")
	t.Setenv("SMTP_RECIPIENTS", " a@x.org, ,b@x.org ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "3001", cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, []string{"a@x.org", "b@x.org"}, cfg.SMTP.Recipients)
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")

	_, err := Load()
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestLoad_ProdNeedsSecret(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("APP_ENV", "prod")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrJWTSecretMissing)
}
