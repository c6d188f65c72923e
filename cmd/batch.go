package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/social-leads/internal/model"
	"github.com/sells-group/social-leads/internal/pipeline"
)

var (
	batchFile        string
	batchOutput      string
	batchConcurrency int
)

// batchTarget is one entry in the YAML targets file.
type batchTarget struct {
	Platform string `yaml:"platform"`
	URL      string `yaml:"url"`
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Scrape a YAML file of profile targets concurrently",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(batchFile)
		if err != nil {
			return eris.Wrap(err, "batch: read targets file")
		}
		var targets []batchTarget
		if err := yaml.Unmarshal(data, &targets); err != nil {
			return eris.Wrap(err, "batch: parse targets file")
		}
		if len(targets) == 0 {
			return eris.New("batch: no targets in file")
		}

		p, err := pipeline.New(cfg)
		if err != nil {
			return err
		}

		// Index-addressed results keep output in input order; failed
		// targets stay nil and are dropped below.
		results := make([]*model.LeadRecord, len(targets))

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(batchConcurrency)
		for i, t := range targets {
			g.Go(func() error {
				platform, ok := model.ParsePlatform(t.Platform)
				if !ok {
					zap.L().Warn("batch: skipping unknown platform",
						zap.String("platform", t.Platform),
						zap.String("url", t.URL),
					)
					return nil
				}
				rec, err := p.Scrape(gCtx, platform, t.URL)
				if err != nil {
					if gCtx.Err() != nil {
						return gCtx.Err()
					}
					zap.L().Warn("batch: target failed",
						zap.String("platform", t.Platform),
						zap.String("url", t.URL),
						zap.Error(err),
					)
					return nil
				}
				results[i] = &rec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return eris.Wrap(err, "batch")
		}

		records := make([]model.LeadRecord, 0, len(results))
		for _, r := range results {
			if r != nil {
				records = append(records, *r)
			}
		}

		zap.L().Info("batch complete",
			zap.Int("targets", len(targets)),
			zap.Int("scraped", len(records)),
		)

		out := os.Stdout
		if batchOutput != "" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrap(err, "batch: create output file")
			}
			defer func() { _ = f.Close() }()
			out = f
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "", "YAML targets file (required)")
	batchCmd.Flags().StringVar(&batchOutput, "output", "", "output file (default stdout)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 5, "max concurrent scrapes")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}
