// ABOUTME: Workflow pack serves workflow pattern discovery and step-by-step guidance.
// ABOUTME: Patterns are YAML files loaded from a configurable directory.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Workflow describes a multi-step tool usage pattern.
type Workflow struct {
	Name        string         `yaml:"name" json:"name"`
	Category    string         `yaml:"category" json:"category"`
	Description string         `yaml:"description" json:"description"`
	Steps       []WorkflowStep `yaml:"steps" json:"steps"`
}

// WorkflowStep is a single step within a workflow.
type WorkflowStep struct {
	Tool        string `yaml:"tool" json:"tool"`
	Description string `yaml:"description" json:"description"`
}

// usesTool reports whether any step of the workflow invokes the tool.
func (w *Workflow) usesTool(tool string) bool {
	for _, step := range w.Steps {
		if step.Tool == tool {
			return true
		}
	}
	return false
}

// WorkflowPack creates the pack of workflow navigation tools. Patterns are
// loaded once from patternsDir; a missing directory yields an empty catalog.
func WorkflowPack(patternsDir string, logger *slog.Logger) *Pack {
	if logger == nil {
		logger = slog.Default()
	}
	h := &workflowHandlers{logger: logger}
	h.workflows = loadWorkflows(patternsDir, logger)

	return &Pack{
		ID: "builtin:workflows",
		Tools: []*Tool{
			{
				Definition: &ToolDefinition{
					Name:        "substrate_show_workflows",
					Description: "Discover available workflows, optionally filtered by category or tool",
					InputSchema: `{"type":"object","properties":{"category":{"type":"string"},"tool":{"type":"string"}}}`,
				},
				Handler: h.ShowWorkflows,
			},
			{
				Definition: &ToolDefinition{
					Name:        "substrate_workflow_guide",
					Description: "Get the step-by-step guide for a named workflow",
					InputSchema: `{"type":"object","properties":{"workflow_name":{"type":"string"}},"required":["workflow_name"]}`,
				},
				Handler: h.WorkflowGuide,
			},
		},
	}
}

// loadWorkflows reads every YAML pattern file under dir, sorted by name.
// Unreadable files are logged and skipped.
func loadWorkflows(dir string, logger *slog.Logger) []*Workflow {
	var workflows []*Workflow

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".yaml") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("reading workflow pattern", "path", path, "error", err)
			return nil
		}
		var wf Workflow
		if err := yaml.Unmarshal(data, &wf); err != nil {
			logger.Warn("parsing workflow pattern", "path", path, "error", err)
			return nil
		}
		if wf.Name == "" {
			wf.Name = strings.TrimSuffix(filepath.Base(path), ".yaml")
		}
		workflows = append(workflows, &wf)
		return nil
	})
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("loading workflow patterns", "dir", dir, "error", err)
		}
		return nil
	}

	sort.Slice(workflows, func(i, j int) bool { return workflows[i].Name < workflows[j].Name })
	logger.Info("workflow patterns loaded", "dir", dir, "count", len(workflows))
	return workflows
}

type workflowHandlers struct {
	logger    *slog.Logger
	workflows []*Workflow
}

type showWorkflowsInput struct {
	Category string `json:"category"`
	Tool     string `json:"tool"`
}

type showWorkflowsOutput struct {
	Workflows  []*Workflow `json:"workflows"`
	Count      int         `json:"count"`
	Categories []string    `json:"categories"`
}

func (h *workflowHandlers) ShowWorkflows(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in showWorkflowsInput
	if len(input) > 0 {
		if err := json.Unmarshal(input, &in); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}
	}

	filtered := make([]*Workflow, 0, len(h.workflows))
	catSet := make(map[string]struct{})
	for _, wf := range h.workflows {
		catSet[wf.Category] = struct{}{}
		if in.Category != "" && wf.Category != in.Category {
			continue
		}
		if in.Tool != "" && !wf.usesTool(in.Tool) {
			continue
		}
		filtered = append(filtered, wf)
	}

	categories := make([]string, 0, len(catSet))
	for c := range catSet {
		if c != "" {
			categories = append(categories, c)
		}
	}
	sort.Strings(categories)

	return json.Marshal(showWorkflowsOutput{
		Workflows:  filtered,
		Count:      len(filtered),
		Categories: categories,
	})
}

type workflowGuideInput struct {
	WorkflowName string `json:"workflow_name"`
}

type workflowGuideOutput struct {
	Workflow *Workflow `json:"workflow"`
	Guide    []string  `json:"guide"`
}

func (h *workflowHandlers) WorkflowGuide(_ context.Context, input json.RawMessage) (json.RawMessage, error) {
	var in workflowGuideInput
	if err := json.Unmarshal(input, &in); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	for _, wf := range h.workflows {
		if wf.Name != in.WorkflowName {
			continue
		}
		guide := make([]string, len(wf.Steps))
		for i, step := range wf.Steps {
			guide[i] = fmt.Sprintf("%d. %s: %s", i+1, step.Tool, step.Description)
		}
		return json.Marshal(workflowGuideOutput{Workflow: wf, Guide: guide})
	}

	available := make([]string, len(h.workflows))
	for i, wf := range h.workflows {
		available[i] = wf.Name
	}
	return nil, fmt.Errorf("workflow %q not found; available: %s",
		in.WorkflowName, strings.Join(available, ", "))
}
