package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/lifeplanner/pkg/billing"
)

// Version information (set at build time with -ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	apiURL    string
	tokenFile string
	logFormat string
	appEnv    string
	envFile   string
)

var rootCmd = &cobra.Command{
	Use:   "planctl",
	Short: "planctl - subscription and feature-limit client for the planner API",
	Long: `planctl calls the billing endpoints of the planner API as the signed-in user.

The ID token is read from --token-file or the LIFEPLANNER_ID_TOKEN environment variable.
The API root defaults to API_BASE_URL or http://localhost:5000/api.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "planctl %s\n", Version)
		if GitCommit != "unknown" {
			fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", GitCommit)
		}
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&apiURL, "api-url", "", "API root URL (overrides API_BASE_URL)")
	flags.StringVar(&tokenFile, "token-file", "", "file holding the ID token, re-read on every request")
	flags.StringVar(&logFormat, "log-format", "", "log format: text or json (overrides LOG_FORMAT)")
	flags.StringVar(&appEnv, "env", "", "environment: development, staging or production (overrides APP_ENV)")
	flags.StringVar(&envFile, "env-file", "", "additional .env file to load")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(subscriptionCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(portalCmd)
	rootCmd.AddCommand(limitsCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := errorHint(err); hint != "" {
			fmt.Fprintln(os.Stderr, hint)
		}
		os.Exit(1)
	}
}

func errorHint(err error) string {
	switch {
	case errors.Is(err, billing.ErrUnauthenticated):
		return "Sign in first: pass --token-file or set " + tokenEnvVar + "."
	case errors.Is(err, billing.ErrAuthenticationFailed):
		return "The ID token was rejected; refresh it and try again."
	case errors.Is(err, billing.ErrAccessDenied):
		return "The signed-in user is not allowed to do this."
	default:
		return ""
	}
}
