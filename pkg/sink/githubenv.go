package sink

import (
	"fmt"
	"os"
	"path/filepath"
)

// Variables exported for the CI workflow.
const (
	EnvReportFile     = "ENV_CUSTOM_DATE_FILE"
	EnvReportFileName = "ENV_CUSTOM_DATE_FILE_NAME"
)

// ExportGitHubEnv appends the absolute report path and its base name to a
// GitHub Actions env file.
func ExportGitHubEnv(envFile, reportPath string) error {
	abs, err := filepath.Abs(reportPath)
	if err != nil {
		return fmt.Errorf("resolve report path: %w", err)
	}

	f, err := os.OpenFile(envFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open env file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s=%s\n%s=%s\n", EnvReportFile, abs, EnvReportFileName, filepath.Base(abs)); err != nil {
		return fmt.Errorf("write env file: %w", err)
	}
	return nil
}
