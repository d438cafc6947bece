package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/lifeplanner/pkg/billing"
)

var limitsFile string

var limitsCmd = &cobra.Command{
	Use:   "limits",
	Short: "Feature limit commands",
	Long:  `Read or replace the per-tier feature limits. Replacing them requires an administrator account.`,
}

var limitsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the feature limits of both tiers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, p := a.callContext(cmd)

		limits, err := a.client.GetFeatureLimits(ctx, p)
		if err != nil {
			return err
		}
		if unknown := limits.UnknownFields(); len(unknown) > 0 {
			a.log.InfoContext(ctx, "feature limits contain fields this client does not know", "fields", unknown)
		}
		return printJSON(cmd, limits)
	},
}

var limitsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the feature limits from a JSON file",
	Example: `  # Edit the current limits and upload them
  planctl limits get > limits.json
  planctl limits set --file limits.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limits, err := readLimitsFile(limitsFile)
		if err != nil {
			return err
		}

		a, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, p := a.callContext(cmd)

		saved, err := a.client.UpdateFeatureLimits(ctx, p, limits)
		if err != nil {
			return err
		}
		return printJSON(cmd, saved)
	},
}

func readLimitsFile(path string) (*billing.FeatureLimits, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read limits file: %w", err)
	}
	var limits billing.FeatureLimits
	if err := json.Unmarshal(data, &limits); err != nil {
		return nil, fmt.Errorf("%w: %w", billing.ErrInvalidFeatureLimits, err)
	}
	return &limits, nil
}

func init() {
	limitsSetCmd.Flags().StringVarP(&limitsFile, "file", "f", "", "JSON file with the new limits")
	_ = limitsSetCmd.MarkFlagRequired("file")

	limitsCmd.AddCommand(limitsGetCmd)
	limitsCmd.AddCommand(limitsSetCmd)
}
