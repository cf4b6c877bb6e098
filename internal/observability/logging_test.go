package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	origCLI, origSrv := CLILogger, ServerLogger
	defer func() {
		CLILogger = origCLI
		ServerLogger = origSrv
	}()

	tests := []struct {
		name    string
		level   string
		profile string
		wantErr bool
	}{
		{name: "info structured", level: "info", profile: ProfileStructured},
		{name: "debug console", level: "debug", profile: ProfileConsole},
		{name: "warn uppercase", level: "WARN", profile: ProfileStructured},
		{name: "bad level", level: "shout", profile: ProfileStructured, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Init(tt.level, tt.profile)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log level")
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, CLILogger)
			assert.NotNil(t, ServerLogger)
		})
	}
}

func TestLoggersAreNopBeforeInit(t *testing.T) {
	// Must not panic even if Init was never called.
	CLILogger.Info("noop")
	ServerLogger.Info("noop")
}
