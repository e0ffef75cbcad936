package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/kkkkikiki/coupon-ledger/internal/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.AppConfig
		debugOn   bool
		infoOn    bool
		expectErr bool
	}{
		{
			name:   "production info",
			cfg:    config.AppConfig{Environment: "production", LogLevel: "info"},
			infoOn: true,
		},
		{
			name:    "debug flag lowers level",
			cfg:     config.AppConfig{Environment: "production", LogLevel: "warn", Debug: true},
			debugOn: true,
			infoOn:  true,
		},
		{
			name: "development warn",
			cfg:  config.AppConfig{Environment: "development", LogLevel: "warn"},
		},
		{
			name:      "unknown level",
			cfg:       config.AppConfig{Environment: "production", LogLevel: "loud"},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, err := New(tt.cfg)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			core := log.Core()
			assert.Equal(t, tt.debugOn, core.Enabled(zapcore.DebugLevel))
			assert.Equal(t, tt.infoOn, core.Enabled(zapcore.InfoLevel))
			assert.True(t, core.Enabled(zapcore.ErrorLevel))
		})
	}
}
