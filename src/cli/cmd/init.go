package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/daemonless/dbuild/src/initproj"
)

var (
	initName       string
	initTitle      string
	initPort       int
	initGitHub     bool
	initWoodpecker bool
	initDryRun     bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold a new dbuild project",
	Long: `Create starter files in the current directory: config, compose
stack, Containerfile, service scripts, and optionally CI pipelines.
Existing files are left untouched.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "application name (default: directory name)")
	initCmd.Flags().StringVar(&initTitle, "title", "", "display title (default: capitalized name)")
	initCmd.Flags().IntVar(&initPort, "port", 8080, "application port")
	initCmd.Flags().BoolVar(&initGitHub, "github", false, "also write a GitHub Actions workflow")
	initCmd.Flags().BoolVar(&initWoodpecker, "woodpecker", false, "also write a Woodpecker pipeline")
	initCmd.Flags().BoolVar(&initDryRun, "dry-run", false, "show what would be created")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	created, err := initproj.Scaffold(cwd, initproj.Options{
		Name:       initName,
		Title:      initTitle,
		Port:       initPort,
		GitHub:     initGitHub,
		Woodpecker: initWoodpecker,
		DryRun:     initDryRun,
	}, log)
	if err != nil {
		return err
	}
	if len(created) == 0 {
		log.Info().Msg("nothing to do (all files already exist)")
	}
	return nil
}
