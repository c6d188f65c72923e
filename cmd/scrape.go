package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/social-leads/internal/model"
	"github.com/sells-group/social-leads/internal/pipeline"
)

var (
	scrapePlatform string
	scrapeURL      string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape a single profile and print the lead record",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		platform, ok := model.ParsePlatform(scrapePlatform)
		if !ok {
			return eris.Errorf("unknown platform %q (want instagram or tiktok)", scrapePlatform)
		}

		p, err := pipeline.New(cfg)
		if err != nil {
			return err
		}

		rec, err := p.Scrape(ctx, platform, scrapeURL)
		if err != nil {
			return eris.Wrap(err, "scrape")
		}

		zap.L().Info("scrape complete",
			zap.String("platform", string(platform)),
			zap.String("url", rec.URL),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapePlatform, "platform", "instagram", "platform (instagram or tiktok)")
	scrapeCmd.Flags().StringVar(&scrapeURL, "url", "", "profile URL or handle (required)")
	_ = scrapeCmd.MarkFlagRequired("url")
	rootCmd.AddCommand(scrapeCmd)
}
