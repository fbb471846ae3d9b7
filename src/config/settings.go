package config

import (
	"os"
	"strconv"
)

// Settings carries process-environment configuration, resolved once at
// command start. Component logic receives this struct explicitly and
// never reads environment variables on its own.
type Settings struct {
	Registry string // DBUILD_REGISTRY override

	DockerHubUsername string
	DockerHubToken    string

	ChromeBin       string
	ChromeDriverBin string
	ScreenshotSize  string

	SSIMThreshold float64

	CommitMessage string // DBUILD_COMMIT_MESSAGE override for skip directives
}

// Default screenshot comparison settings.
const (
	DefaultChromeBin      = "/usr/local/bin/chrome"
	DefaultScreenshotSize = "1920,1080"
	DefaultSSIMThreshold  = 0.95
)

// SettingsFromEnv builds Settings from the process environment.
func SettingsFromEnv() Settings {
	s := Settings{
		Registry:          os.Getenv("DBUILD_REGISTRY"),
		DockerHubUsername: os.Getenv("DOCKERHUB_USERNAME"),
		DockerHubToken:    os.Getenv("DOCKERHUB_TOKEN"),
		ChromeBin:         os.Getenv("CHROME_BIN"),
		ChromeDriverBin:   os.Getenv("CHROMEDRIVER_BIN"),
		ScreenshotSize:    os.Getenv("SCREENSHOT_SIZE"),
		CommitMessage:     os.Getenv("DBUILD_COMMIT_MESSAGE"),
		SSIMThreshold:     DefaultSSIMThreshold,
	}
	if s.ChromeBin == "" {
		s.ChromeBin = DefaultChromeBin
	}
	if s.ScreenshotSize == "" {
		s.ScreenshotSize = DefaultScreenshotSize
	}
	if v := os.Getenv("VERIFY_SSIM_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.SSIMThreshold = f
		}
	}
	return s
}
