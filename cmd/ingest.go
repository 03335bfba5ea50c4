package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/ragflow/pkg/engine"
)

func newIngestCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Upload documents into the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.app(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			color.Blue("\nIngesting %d document(s)\n", len(args))
			bar := getProgressBar(len(args), "📄 Ingesting...")

			var failed int
			for _, path := range args {
				name := filepath.Base(path)
				f, err := os.Open(path)
				if err != nil {
					bar.Add(1)
					color.Red("\n✗ %s: %v", name, err)
					failed++
					continue
				}

				res, err := a.Pipeline.Ingest(ctx, name, f)
				f.Close()
				bar.Add(1)

				if err != nil {
					var se *engine.StageError
					if errors.As(err, &se) {
						color.Red("\n✗ %s: %s", name, se.Detail())
					} else {
						color.Red("\n✗ %s: %v", name, err)
					}
					failed++
					continue
				}

				preview := "Failed"
				if res.EmbeddingPreview != nil {
					preview = fmt.Sprint(res.EmbeddingPreview)
				}
				color.Green("\n✓ %s → document %d (embedding %s)", name, res.DocumentID, preview)
			}
			bar.Finish()

			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(args))
			}
			return nil
		},
	}
}
