// Copyright 2025 Pipeflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pipeflowhq/pipeflow-go/pkg/pipeflow"
)

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "pipeflow_list_workflows",
		Description: "List workflows on the connected Pipeflow instance, optionally filtered by activation state or search term.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"active": map[string]any{
					"type":        "boolean",
					"description": "Only workflows with this activation state",
				},
				"search": map[string]any{
					"type":        "string",
					"description": "Search workflows by name",
				},
			},
		},
	}, s.handleListWorkflows)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "pipeflow_get_workflow",
		Description: "Get one workflow's full definition including nodes and connections.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"workflow_id": map[string]any{
					"type":        "string",
					"description": "The workflow ID",
				},
			},
			Required: []string{"workflow_id"},
		},
	}, s.handleGetWorkflow)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "pipeflow_run_workflow",
		Description: "Execute a workflow. Rate limited; use pipeflow_get_execution to follow progress.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"workflow_id": map[string]any{
					"type":        "string",
					"description": "The workflow ID",
				},
				"inputs": map[string]any{
					"type":        "object",
					"description": "Input values passed to the workflow",
				},
				"wait": map[string]any{
					"type":        "boolean",
					"description": "Wait for the execution to finish before returning (default: false)",
				},
			},
			Required: []string{"workflow_id"},
		},
	}, s.handleRunWorkflow)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "pipeflow_get_execution",
		Description: "Get an execution's status, output, and error details.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"execution_id": map[string]any{
					"type":        "string",
					"description": "The execution ID",
				},
			},
			Required: []string{"execution_id"},
		},
	}, s.handleGetExecution)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "pipeflow_execution_logs",
		Description: "Get the log lines produced by an execution, useful for diagnosing failures.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"execution_id": map[string]any{
					"type":        "string",
					"description": "The execution ID",
				},
			},
			Required: []string{"execution_id"},
		},
	}, s.handleExecutionLogs)
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.rateLimiter.AllowCall() {
		return errorResult("Rate limit exceeded. Please try again later."), nil
	}

	opts := &pipeflow.WorkflowListOptions{
		Search: request.GetString("search", ""),
	}
	if args := request.GetArguments(); args != nil {
		if active, ok := args["active"].(bool); ok {
			opts.Active = &active
		}
	}

	page, err := s.client.Workflows.List(ctx, opts)
	if err != nil {
		return errorResult("Failed to list workflows: %v", err), nil
	}
	return jsonResult(page.Data)
}

func (s *Server) handleGetWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.rateLimiter.AllowCall() {
		return errorResult("Rate limit exceeded. Please try again later."), nil
	}

	id, err := request.RequireString("workflow_id")
	if err != nil {
		return errorResult("Missing or invalid 'workflow_id' argument"), nil
	}

	wf, err := s.client.Workflows.Get(ctx, id)
	if err != nil {
		return errorResult("Failed to get workflow: %v", err), nil
	}
	return jsonResult(wf)
}

func (s *Server) handleRunWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.rateLimiter.AllowCall() {
		return errorResult("Rate limit exceeded. Please try again later."), nil
	}
	if !s.rateLimiter.AllowRun() {
		return errorResult("Rate limit exceeded for workflow execution. Please try again later."), nil
	}

	id, err := request.RequireString("workflow_id")
	if err != nil {
		return errorResult("Missing or invalid 'workflow_id' argument"), nil
	}

	var inputs map[string]any
	if args := request.GetArguments(); args != nil {
		if raw, ok := args["inputs"].(map[string]any); ok {
			inputs = raw
		}
	}

	execution, err := s.client.Workflows.Execute(ctx, id, inputs)
	if err != nil {
		return errorResult("Failed to execute workflow: %v", err), nil
	}

	if request.GetBool("wait", false) {
		execution, err = s.client.Executions.WaitForCompletion(ctx, execution.ID, 0)
		if err != nil {
			return errorResult("Execution %s did not finish: %v", execution.ID, err), nil
		}
	}
	return jsonResult(execution)
}

func (s *Server) handleGetExecution(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.rateLimiter.AllowCall() {
		return errorResult("Rate limit exceeded. Please try again later."), nil
	}

	id, err := request.RequireString("execution_id")
	if err != nil {
		return errorResult("Missing or invalid 'execution_id' argument"), nil
	}

	execution, err := s.client.Executions.Get(ctx, id)
	if err != nil {
		return errorResult("Failed to get execution: %v", err), nil
	}
	return jsonResult(execution)
}

func (s *Server) handleExecutionLogs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.rateLimiter.AllowCall() {
		return errorResult("Rate limit exceeded. Please try again later."), nil
	}

	id, err := request.RequireString("execution_id")
	if err != nil {
		return errorResult("Missing or invalid 'execution_id' argument"), nil
	}

	entries, err := s.client.Executions.Logs(ctx, id)
	if err != nil {
		return errorResult("Failed to get execution logs: %v", err), nil
	}
	return jsonResult(entries)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return textResult(string(data)), nil
}
