package analyzer

import (
	"os"

	"github.com/rs/zerolog"
)

// testModeEnvVar enables verbose calculation logging.
const testModeEnvVar = "APICUS_TEST_MODE"

// IsTestMode returns true if test mode is enabled via environment variable.
// Only the exact string "true" enables it.
func IsTestMode() bool {
	return os.Getenv(testModeEnvVar) == "true"
}

// ValidateTestModeEnv checks if APICUS_TEST_MODE has an invalid value
// and logs a warning if so. Valid values are "true", "false", or unset.
// Invalid values (e.g., "1", "yes") are treated as disabled.
func ValidateTestModeEnv(logger zerolog.Logger) {
	val := os.Getenv(testModeEnvVar)
	if val != "" && val != "true" && val != "false" {
		logger.Warn().
			Str("env_var", testModeEnvVar).
			Str("value", val).
			Msg("Invalid test mode value, expected 'true' or 'false'; test mode disabled")
	}
}
