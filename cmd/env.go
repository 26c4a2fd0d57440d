package cmd

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Environment variables that supply defaults for flags left unset.
var envFlagDefaults = map[string]string{
	"log":          "CSIM_LOG",
	"presets-file": "CSIM_PRESETS",
	"results-file": "CSIM_RESULTS_FILE",
}

// loadDotEnv reads KEY=VALUE pairs from path into the environment. Variables
// already set in the environment win. A missing file is not an error.
func loadDotEnv(path string) {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logrus.Warnf("Ignoring %s: %v", path, err)
	}
}

// applyEnvDefaults copies environment values into flags the user did not set.
func applyEnvDefaults(cmd *cobra.Command) {
	for flag, key := range envFlagDefaults {
		if cmd.Flags().Changed(flag) {
			continue
		}
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		if err := cmd.Flags().Set(flag, v); err != nil {
			logrus.Warnf("Ignoring %s=%q: %v", key, v, err)
		}
	}
}
