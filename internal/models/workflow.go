package models

import "strings"

// NodeRole is the semantic purpose of a node in a workflow graph.
type NodeRole int

const (
	RoleUnknown NodeRole = iota
	RoleQuerySource
	RoleKnowledgeSource
	RoleLLMEngine
	RoleOutput
)

// Labels the workflow builder assigns to each role.
const (
	LabelUserQuery     = "User Query"
	LabelKnowledgeBase = "KnowledgeBase"
	LabelLLMEngine     = "LLM Engine"
	LabelOutput        = "Output"
)

var roleLabels = map[string]NodeRole{
	LabelUserQuery:     RoleQuerySource,
	LabelKnowledgeBase: RoleKnowledgeSource,
	LabelLLMEngine:     RoleLLMEngine,
	LabelOutput:        RoleOutput,
}

func (r NodeRole) String() string {
	switch r {
	case RoleQuerySource:
		return "query_source"
	case RoleKnowledgeSource:
		return "knowledge_source"
	case RoleLLMEngine:
		return "llm_engine"
	case RoleOutput:
		return "output"
	default:
		return "unknown"
	}
}

// Position is the canvas coordinate of a node. The engine never reads it.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Node struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Data     map[string]interface{} `json:"data"`
	Position Position               `json:"position"`
}

// Role derives the node role from its data.label value.
func (n Node) Role() NodeRole {
	return roleLabels[n.Attr("label")]
}

// Attr returns data[key] when it holds a string, "" otherwise.
func (n Node) Attr(key string) string {
	if n.Data == nil {
		return ""
	}
	s, _ := n.Data[key].(string)
	return s
}

// NonBlank is like Attr but treats whitespace-only values as absent.
func (n Node) NonBlank(key string) string {
	s := n.Attr(key)
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

type Edge struct {
	ID     string                 `json:"id,omitempty"`
	Source string                 `json:"source"`
	Target string                 `json:"target"`
	Type   string                 `json:"type,omitempty"`
	Data   map[string]interface{} `json:"data,omitempty"`
}

type Workflow struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// FirstWithRole returns the first node in submission order whose role matches.
func (w Workflow) FirstWithRole(role NodeRole) (Node, bool) {
	for _, n := range w.Nodes {
		if n.Role() == role {
			return n, true
		}
	}
	return Node{}, false
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ExecutionResult is the envelope every workflow run produces, success or not.
type ExecutionResult struct {
	Status   string    `json:"status"`
	Message  string    `json:"message"`
	Workflow *Workflow `json:"workflow,omitempty"`
	Result   string    `json:"result"`
}
