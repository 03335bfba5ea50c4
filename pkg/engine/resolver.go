package engine

import (
	"fmt"

	"github.com/xhad/ragflow/internal/models"
	"github.com/xhad/ragflow/internal/types"
)

// Resolved is everything the executor needs from a workflow graph.
type Resolved struct {
	Query    string
	Filename string

	// Set from the first LLM Engine node, empty otherwise.
	Backend   string
	APIKey    string
	ModelName string
}

// Resolver picks the query and document for a workflow by node role. Edges
// are not consulted.
type Resolver struct {
	files types.FileStore
}

func NewResolver(files types.FileStore) *Resolver {
	return &Resolver{files: files}
}

func (r *Resolver) Resolve(wf models.Workflow) (Resolved, error) {
	var res Resolved

	query, ok := wf.FirstWithRole(models.RoleQuerySource)
	if !ok || query.NonBlank("prompt") == "" {
		return res, &Failure{Kind: ErrMissingQuery, Message: "User Query node missing prompt."}
	}
	res.Query = query.Attr("prompt")

	if kb, ok := wf.FirstWithRole(models.RoleKnowledgeSource); ok {
		res.Filename = kb.NonBlank("filename")
	}

	if res.Filename == "" {
		pdfs, err := r.files.ListPDFs()
		if err != nil {
			return res, &Failure{
				Kind:    ErrMissingDocument,
				Message: fmt.Sprintf("Could not find PDF: %v", err),
				Err:     err,
			}
		}
		if len(pdfs) == 0 {
			return res, &Failure{Kind: ErrMissingDocument, Message: "KnowledgeBase node missing filename and no PDF found."}
		}
		res.Filename = pdfs[0].Name
	}

	if engine, ok := wf.FirstWithRole(models.RoleLLMEngine); ok {
		res.Backend = engine.NonBlank("model")
		res.APIKey = engine.NonBlank("apiKey")
		res.ModelName = engine.NonBlank("modelName")
	}

	return res, nil
}
