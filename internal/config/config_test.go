package config

import (
	"context"
	"testing"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8000", cfg.Server.GetServerAddr())
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "coupon_ledger", cfg.Database.Name)
	assert.Equal(t, "UTC", cfg.App.Timezone)
	assert.True(t, cfg.App.IsDevelopment())
	assert.False(t, cfg.App.IsProduction())
}

func TestLoadWith_Overrides(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"SERVER_PORT":     "9090",
		"STORE_DRIVER":    "mongo",
		"MONGO_DATABASE":  "water",
		"DB_HOST":         "db.internal",
		"APP_ENVIRONMENT": "production",
		"APP_TIMEZONE":    "Asia/Kolkata",
	}))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.Server.GetServerAddr())
	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	assert.Equal(t, "water", cfg.Mongo.Database)
	assert.Contains(t, cfg.Database.GetDatabaseURL(), "host=db.internal")
	assert.True(t, cfg.App.IsProduction())

	loc, err := cfg.App.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", loc.String())
}

func TestLoadWith_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"STORE_DRIVER": "sqlite"}},
		{name: "unknown timezone", env: map[string]string{"APP_TIMEZONE": "Mars/Olympus"}},
		{name: "non-numeric timeout", env: map[string]string{"SERVER_READ_TIMEOUT": "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWith(context.Background(), envconfig.MapLookuper(tt.env))
			assert.Error(t, err)
		})
	}
}
