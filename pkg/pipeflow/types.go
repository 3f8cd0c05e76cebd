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

package pipeflow

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ExecutionStatus is the lifecycle state of a workflow execution.
type ExecutionStatus string

const (
	StatusPending   ExecutionStatus = "pending"
	StatusRunning   ExecutionStatus = "running"
	StatusSuccess   ExecutionStatus = "success"
	StatusError     ExecutionStatus = "error"
	StatusCancelled ExecutionStatus = "cancelled"
	StatusWaiting   ExecutionStatus = "waiting"
)

// IsTerminal reports whether the status ends an execution. Streaming updates
// additionally use "completed" and "failed" for their terminal frames.
func (s ExecutionStatus) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusError, StatusCancelled, "completed", "failed":
		return true
	}
	return false
}

// Position is a node position on the workflow canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a single step in a workflow definition.
type Node struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Name        string            `json:"name"`
	Position    *Position         `json:"position,omitempty"`
	Parameters  map[string]any    `json:"parameters,omitempty"`
	Credentials map[string]string `json:"credentials,omitempty"`
	Disabled    bool              `json:"disabled,omitempty"`
}

// Connection links two nodes in a workflow definition.
type Connection struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// Workflow mirrors the platform's workflow resource. Values are owned by the
// caller once returned; the SDK does no client-side caching.
type Workflow struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Active      bool           `json:"active"`
	Tags        []string       `json:"tags,omitempty"`
	Nodes       []Node         `json:"nodes,omitempty"`
	Connections []Connection   `json:"connections,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
	Version     int            `json:"version,omitempty"`
	CreatedAt   time.Time      `json:"created_at,omitempty"`
	UpdatedAt   time.Time      `json:"updated_at,omitempty"`
}

// WorkflowValidation is the platform's verdict on a workflow definition.
type WorkflowValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ExecutionFailure describes why an execution or node run failed.
type ExecutionFailure struct {
	Message string `json:"message"`
	NodeID  string `json:"node_id,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

// Execution mirrors the platform's execution resource.
type Execution struct {
	ID         string            `json:"id"`
	WorkflowID string            `json:"workflow_id"`
	Status     ExecutionStatus   `json:"status"`
	Mode       string            `json:"mode,omitempty"`
	Input      map[string]any    `json:"input,omitempty"`
	Output     map[string]any    `json:"output,omitempty"`
	Error      *ExecutionFailure `json:"error,omitempty"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

// ExecutionLogEntry is a single log line produced by an execution.
type ExecutionLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	NodeID    string    `json:"node_id,omitempty"`
}

// NodeData is the captured input/output of a single node run.
type NodeData struct {
	NodeID     string          `json:"node_id"`
	Status     ExecutionStatus `json:"status"`
	Input      map[string]any  `json:"input,omitempty"`
	Output     map[string]any  `json:"output,omitempty"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// ExecutionStatistics aggregates execution outcomes over a time range.
type ExecutionStatistics struct {
	Total             int            `json:"total"`
	ByStatus          map[string]int `json:"by_status"`
	AverageDurationMS float64        `json:"average_duration_ms"`
}

// Credential mirrors the platform's credential resource. Data values are
// redacted by the platform on read.
type Credential struct {
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Data       map[string]any `json:"data,omitempty"`
	CreatedAt  time.Time      `json:"created_at,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at,omitempty"`
	LastUsedAt *time.Time     `json:"last_used_at,omitempty"`
}

// CredentialTest is the result of a connectivity test for a credential.
type CredentialTest struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	TestedAt time.Time      `json:"tested_at,omitempty"`
}

// CredentialUsage records one use of a credential by an execution.
type CredentialUsage struct {
	CredentialID string    `json:"credential_id"`
	WorkflowID   string    `json:"workflow_id"`
	ExecutionID  string    `json:"execution_id"`
	UsedAt       time.Time `json:"used_at"`
}

// OAuthStart is the platform's response to starting an OAuth flow.
type OAuthStart struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// User is the authenticated account behind the current credential.
type User struct {
	ID             string `json:"id"`
	Username       string `json:"username"`
	Email          string `json:"email,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// APIVersion is the platform's version descriptor.
type APIVersion struct {
	Version    string `json:"version"`
	APIVersion string `json:"api_version,omitempty"`
}

// ChatMessage is one turn in an AI conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage reports token consumption for an AI operation.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AIProvider describes an AI backend available on the platform.
type AIProvider struct {
	Name      string   `json:"name"`
	Models    []string `json:"models,omitempty"`
	Available bool     `json:"available"`
}

// CompletionRequest asks the platform to run a text completion.
type CompletionRequest struct {
	Provider    string        `json:"provider,omitempty"`
	Model       string        `json:"model,omitempty"`
	Prompt      string        `json:"prompt,omitempty"`
	Messages    []ChatMessage `json:"messages,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

// Completion is the platform's completion response.
type Completion struct {
	ID       string     `json:"id"`
	Provider string     `json:"provider"`
	Model    string     `json:"model"`
	Content  string     `json:"content"`
	Usage    TokenUsage `json:"usage"`
}

// EmbeddingRequest asks the platform to embed the given inputs.
type EmbeddingRequest struct {
	Provider string   `json:"provider,omitempty"`
	Model    string   `json:"model,omitempty"`
	Input    []string `json:"input"`
}

// Embedding is the platform's embedding response.
type Embedding struct {
	Vectors [][]float64 `json:"vectors"`
	Usage   TokenUsage  `json:"usage"`
}

// VectorSearchRequest queries a vector collection.
type VectorSearchRequest struct {
	Collection string         `json:"collection"`
	Query      string         `json:"query"`
	TopK       int            `json:"top_k,omitempty"`
	Filter     map[string]any `json:"filter,omitempty"`
}

// VectorMatch is one hit from a vector search.
type VectorMatch struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// VectorSearchResult is the platform's vector search response.
type VectorSearchResult struct {
	Matches []VectorMatch `json:"matches"`
}

// AgentRequest creates an AI agent on the platform.
type AgentRequest struct {
	Name         string   `json:"name"`
	Provider     string   `json:"provider,omitempty"`
	Model        string   `json:"model,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
	Tools        []string `json:"tools,omitempty"`
}

// Agent is a configured AI agent.
type Agent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Instructions string    `json:"instructions,omitempty"`
	Tools        []string  `json:"tools,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// AgentReply is one agent response in a conversation.
type AgentReply struct {
	AgentID string        `json:"agent_id"`
	Message ChatMessage   `json:"message"`
	History []ChatMessage `json:"history,omitempty"`
	Usage   TokenUsage    `json:"usage"`
}

// Pagination is the list metadata returned alongside every page.
type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	TotalItems int  `json:"total_items"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// Page is one page of a list response.
type Page[T any] struct {
	Data       []T
	Pagination Pagination
}

// ListOptions are the paging and sorting parameters accepted by every list
// operation. Zero values are omitted from the query string and filled by the
// platform's defaults (page 1, 20 per page, updated_at desc).
type ListOptions struct {
	Page      int
	PerPage   int
	SortBy    string
	SortOrder string
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(o.PerPage))
	}
	if o.SortBy != "" {
		q.Set("sort_by", o.SortBy)
	}
	if o.SortOrder != "" {
		q.Set("sort_order", o.SortOrder)
	}
	return q
}

// WorkflowListOptions filter workflow lists.
type WorkflowListOptions struct {
	ListOptions

	// Active filters by activation state when non-nil.
	Active *bool
	Tags   []string
	Search string
}

func (o WorkflowListOptions) query() url.Values {
	q := o.ListOptions.query()
	if o.Active != nil {
		q.Set("active", strconv.FormatBool(*o.Active))
	}
	if len(o.Tags) > 0 {
		q.Set("tags", strings.Join(o.Tags, ","))
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	return q
}

// ExecutionListOptions filter execution lists.
type ExecutionListOptions struct {
	ListOptions

	WorkflowID string
	Status     ExecutionStatus
	From       time.Time
	To         time.Time
}

func (o ExecutionListOptions) query() url.Values {
	q := o.ListOptions.query()
	if o.WorkflowID != "" {
		q.Set("workflow_id", o.WorkflowID)
	}
	if o.Status != "" {
		q.Set("status", string(o.Status))
	}
	if !o.From.IsZero() {
		q.Set("from", o.From.UTC().Format(time.RFC3339))
	}
	if !o.To.IsZero() {
		q.Set("to", o.To.UTC().Format(time.RFC3339))
	}
	return q
}

// CredentialListOptions filter credential lists.
type CredentialListOptions struct {
	ListOptions

	Type   string
	Search string
}

func (o CredentialListOptions) query() url.Values {
	q := o.ListOptions.query()
	if o.Type != "" {
		q.Set("type", o.Type)
	}
	if o.Search != "" {
		q.Set("search", o.Search)
	}
	return q
}

// ExecutionEvent is one update frame from the streaming channel.
type ExecutionEvent struct {
	Type      string         `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// Status extracts the execution status carried by the event payload, or ""
// when the payload has none.
func (e ExecutionEvent) Status() ExecutionStatus {
	if s, ok := e.Payload["status"].(string); ok {
		return ExecutionStatus(s)
	}
	return ""
}
