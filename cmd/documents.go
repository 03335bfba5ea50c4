package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newDocumentsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "documents",
		Short: "List ingested documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			docs, err := a.Documents.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				color.Yellow("No documents ingested yet.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, color.New(color.Bold).Sprint("ID\tFILENAME\tUPLOADED\tDESCRIPTION"))
			for _, d := range docs {
				uploaded, desc := "-", ""
				if d.UploadTime != nil {
					uploaded = d.UploadTime.Local().Format(time.DateTime)
				}
				if d.Description != nil {
					desc = *d.Description
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", d.ID, d.Filename, uploaded, desc)
			}
			return w.Flush()
		},
	}
}
