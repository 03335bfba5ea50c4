package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/ragflow/internal/types"
)

func newAskCmd(c *cli) *cobra.Command {
	var req types.GenerateRequest

	cmd := &cobra.Command{
		Use:   "ask PROMPT...",
		Short: "Send one prompt straight to the model gateway",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Prompt = strings.Join(args, " ")

			a, err := c.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			spinner := getSpinner("🤖 Generating response...")
			answer, err := a.Gateway.Generate(cmd.Context(), req)
			spinner.Finish()
			fmt.Print("\r")
			if err != nil {
				return err
			}

			color.New(color.FgCyan).Printf("Assistant: %s\n", answer)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Context, "context", "", "Context text to answer from")
	cmd.Flags().StringVar(&req.Backend, "backend", "", "Model backend: gemini or openai")
	cmd.Flags().StringVar(&req.ModelName, "model", "", "Model name override")
	return cmd
}
