package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/a11y-chain/internal/interceptor"
	"github.com/mj1618/a11y-chain/internal/output"
)

var featuresCmd = &cobra.Command{
	Use:   "features [mask]",
	Short: "List feature flags or decode a feature mask",
	Long: `List every accessibility feature with its bit, marking those enabled.

Without an argument the enabled set comes from the config. With an argument
the mask is decoded instead: names ("touch_exploration,magnification"),
decimal ("3") or hex ("0x82").`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFeatures,
}

func init() {
	rootCmd.AddCommand(featuresCmd)
}

func runFeatures(cmd *cobra.Command, args []string) error {
	var mask interceptor.Feature
	if len(args) == 1 {
		m, err := interceptor.ParseFeatures(args[0])
		if err != nil {
			return err
		}
		mask = m
	} else {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		mask = cfg.FeatureMask()
	}
	return output.Fprint(cmd.OutOrStdout(), featuresResult(mask))
}

func featuresResult(mask interceptor.Feature) output.FeaturesResult {
	res := output.FeaturesResult{
		Mask:    fmt.Sprintf("0x%x", uint32(mask)),
		Enabled: []string{},
	}
	if mask != 0 {
		res.Enabled = mask.Names()
	}
	for _, f := range interceptor.AllFeatures() {
		res.Features = append(res.Features, output.FeatureInfo{
			Name:    f.String(),
			Bit:     fmt.Sprintf("0x%x", uint32(f)),
			Enabled: mask.Has(f),
		})
	}
	return res
}
