package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/ragflow/internal/models"
)

type runOptions struct {
	workflowFile string
	prompt       string
	filename     string
	backend      string
	modelName    string
}

func newRunCmd(c *cli) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a workflow from a JSON file or from flags",
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := opts.workflow()
			if err != nil {
				return err
			}

			a, err := c.app(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			spinner := getSpinner("🤖 Running workflow...")
			res := a.Executor.Execute(cmd.Context(), wf)
			spinner.Finish()
			fmt.Print("\r")

			if res.Status != models.StatusSuccess {
				return errors.New(res.Message)
			}
			color.Green("✓ %s\n", res.Message)
			color.New(color.FgCyan).Printf("Assistant: %s\n", res.Result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.workflowFile, "file", "f", "", "Workflow JSON ({nodes, edges})")
	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "User query")
	cmd.Flags().StringVar(&opts.filename, "document", "", "Uploaded document to use (default: newest PDF)")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "Model backend: gemini or openai")
	cmd.Flags().StringVar(&opts.modelName, "model", "", "Model name override")
	return cmd
}

// workflow loads the workflow file, or builds the two-node workflow the
// flags describe.
func (o runOptions) workflow() (models.Workflow, error) {
	var wf models.Workflow

	if o.workflowFile != "" {
		data, err := os.ReadFile(o.workflowFile)
		if err != nil {
			return wf, fmt.Errorf("failed to read workflow: %w", err)
		}
		if err := json.Unmarshal(data, &wf); err != nil {
			return wf, fmt.Errorf("failed to parse workflow: %w", err)
		}
		return wf, nil
	}

	wf.Nodes = []models.Node{
		{ID: "query", Type: "input", Data: map[string]interface{}{
			"label":  models.LabelUserQuery,
			"prompt": o.prompt,
		}},
		{ID: "kb", Type: "default", Data: map[string]interface{}{
			"label":    models.LabelKnowledgeBase,
			"filename": o.filename,
		}},
	}
	wf.Edges = []models.Edge{{ID: "query-kb", Source: "query", Target: "kb"}}

	if o.backend != "" || o.modelName != "" {
		wf.Nodes = append(wf.Nodes, models.Node{ID: "llm", Type: "default", Data: map[string]interface{}{
			"label":     models.LabelLLMEngine,
			"model":     o.backend,
			"modelName": o.modelName,
		}})
		wf.Edges = append(wf.Edges, models.Edge{ID: "kb-llm", Source: "kb", Target: "llm"})
	}
	return wf, nil
}
