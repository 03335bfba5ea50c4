package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/ragflow/internal/models"
	"github.com/xhad/ragflow/pkg/engine"
)

func node(id, label string, data map[string]interface{}) models.Node {
	d := map[string]interface{}{"label": label}
	for k, v := range data {
		d[k] = v
	}
	return models.Node{ID: id, Type: "default", Data: d}
}

func TestResolver(t *testing.T) {
	store, fs := newFiles()
	writeFile(t, fs, "old.pdf", "old", base)
	writeFile(t, fs, "NEW.PDF", "new", base.Add(2*time.Hour))
	writeFile(t, fs, "newest.txt", "txt", base.Add(3*time.Hour))

	r := engine.NewResolver(store)

	tests := []struct {
		name     string
		nodes    []models.Node
		wantFile string
		wantErr  error
		wantMsg  string
	}{
		{
			name:    "no query node",
			nodes:   []models.Node{node("2", "KnowledgeBase", map[string]interface{}{"filename": "old.pdf"})},
			wantErr: engine.ErrMissingQuery,
			wantMsg: "User Query node missing prompt.",
		},
		{
			name:    "blank prompt",
			nodes:   []models.Node{node("1", "User Query", map[string]interface{}{"prompt": "   "})},
			wantErr: engine.ErrMissingQuery,
			wantMsg: "User Query node missing prompt.",
		},
		{
			name:    "non-string prompt",
			nodes:   []models.Node{node("1", "User Query", map[string]interface{}{"prompt": 42})},
			wantErr: engine.ErrMissingQuery,
		},
		{
			name: "explicit filename wins over newer files",
			nodes: []models.Node{
				node("1", "User Query", map[string]interface{}{"prompt": "Summarize"}),
				node("2", "KnowledgeBase", map[string]interface{}{"filename": "old.pdf"}),
			},
			wantFile: "old.pdf",
		},
		{
			name: "fallback to newest pdf",
			nodes: []models.Node{
				node("1", "User Query", map[string]interface{}{"prompt": "Summarize"}),
				node("2", "KnowledgeBase", nil),
			},
			wantFile: "NEW.PDF",
		},
		{
			name:     "fallback without knowledge node",
			nodes:    []models.Node{node("1", "User Query", map[string]interface{}{"prompt": "Summarize"})},
			wantFile: "NEW.PDF",
		},
		{
			name: "first matching node wins",
			nodes: []models.Node{
				node("x", "Output", nil),
				node("1", "User Query", map[string]interface{}{"prompt": "first"}),
				node("2", "KnowledgeBase", map[string]interface{}{"filename": "old.pdf"}),
				node("3", "KnowledgeBase", map[string]interface{}{"filename": "other.pdf"}),
			},
			wantFile: "old.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(models.Workflow{Nodes: tt.nodes})
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				if tt.wantMsg != "" {
					assert.Equal(t, tt.wantMsg, err.Error())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFile, res.Filename)
		})
	}
}

func TestResolver_NoPDFs(t *testing.T) {
	store, fs := newFiles()
	writeFile(t, fs, "notes.txt", "txt", base)

	_, err := engine.NewResolver(store).Resolve(models.Workflow{Nodes: []models.Node{
		node("1", "User Query", map[string]interface{}{"prompt": "hi"}),
	}})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrMissingDocument)
	assert.Equal(t, "KnowledgeBase node missing filename and no PDF found.", err.Error())
}

func TestResolver_ListingFails(t *testing.T) {
	_, err := engine.NewResolver(brokenFiles{}).Resolve(models.Workflow{Nodes: []models.Node{
		node("1", "User Query", map[string]interface{}{"prompt": "hi"}),
	}})
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrMissingDocument)
	assert.Equal(t, "Could not find PDF: permission denied", err.Error())
}

func TestResolver_EngineNode(t *testing.T) {
	store, _ := newFiles()
	res, err := engine.NewResolver(store).Resolve(models.Workflow{Nodes: []models.Node{
		node("1", "User Query", map[string]interface{}{"prompt": "hi"}),
		node("2", "KnowledgeBase", map[string]interface{}{"filename": "a.pdf"}),
		node("3", "LLM Engine", map[string]interface{}{"model": "openai", "apiKey": "sk-test", "modelName": "gpt-4o-mini"}),
	}})
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Query)
	assert.Equal(t, "openai", res.Backend)
	assert.Equal(t, "sk-test", res.APIKey)
	assert.Equal(t, "gpt-4o-mini", res.ModelName)
}
