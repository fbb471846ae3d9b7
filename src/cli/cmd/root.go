package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/daemonless/dbuild/src/config"
	"github.com/daemonless/dbuild/src/logging"
	"github.com/daemonless/dbuild/src/podman"
)

var (
	verbose      bool
	flagVariant  string
	flagArch     string
	flagRegistry string

	rootDir  string
	settings config.Settings
	cfg      *config.Config
	variants []config.Variant
	log      zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dbuild",
	Short: "FreeBSD OCI container image build tool",
	Long:  "dbuild builds, tests, and publishes FreeBSD container images via podman.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = logging.New(verbose)

		// Commands that work without project configuration.
		switch cmd.Name() {
		case "version", "init":
			return nil
		}

		var err error
		rootDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}

		settings = config.SettingsFromEnv()
		if flagRegistry != "" {
			settings.Registry = flagRegistry
		}

		cfg, err = config.Load(rootDir, settings)
		if err != nil {
			return err
		}
		if flagArch != "" {
			cfg.Build.Architectures = []string{flagArch}
		}

		variants, err = config.Resolve(rootDir, cfg)
		if err != nil {
			// Commands decide whether an empty variant set matters.
			var noVariants *config.NoVariantsError
			if errors.As(err, &noVariants) {
				variants = nil
				return nil
			}
			return err
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagVariant, "variant", "", "filter to a single variant by tag (e.g. latest, pkg)")
	rootCmd.PersistentFlags().StringVar(&flagArch, "arch", "", "override target architecture (e.g. amd64, aarch64)")
	rootCmd.PersistentFlags().StringVar(&flagRegistry, "registry", "", "override the container registry (e.g. ghcr.io/myorg)")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

// filteredVariants applies the --variant flag.
func filteredVariants() []config.Variant {
	if flagVariant == "" {
		return variants
	}
	var out []config.Variant
	for _, v := range variants {
		if v.Tag == flagVariant {
			out = append(out, v)
		}
	}
	return out
}

// targetArch returns the single architecture per-variant commands act
// on: the --arch override or the first configured one.
func targetArch() string {
	if flagArch != "" {
		return flagArch
	}
	return cfg.Architectures()[0]
}

func newPodman() *podman.Client {
	return podman.New(verbose)
}

// requireVariants errors when nothing matched the filter (or nothing
// was detected at all).
func requireVariants(vs []config.Variant) error {
	if len(vs) == 0 {
		if flagVariant != "" {
			return fmt.Errorf("no variant matched tag %q", flagVariant)
		}
		return &config.NoVariantsError{Root: rootDir}
	}
	return nil
}
