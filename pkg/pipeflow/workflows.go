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
	"context"
	"encoding/json"
	"fmt"

	pferrors "github.com/pipeflowhq/pipeflow-go/pkg/errors"
)

// WorkflowsService manages workflow definitions.
type WorkflowsService struct {
	client *Client
}

// List returns one page of workflows. A nil opts lists with the platform
// defaults.
func (s *WorkflowsService) List(ctx context.Context, opts *WorkflowListOptions) (*Page[Workflow], error) {
	var o WorkflowListOptions
	if opts != nil {
		o = *opts
	}
	resp, err := s.client.get(ctx, "/workflows", o.query())
	if err != nil {
		return nil, err
	}
	return decodeList[Workflow](resp)
}

// Get fetches a single workflow by ID.
func (s *WorkflowsService) Get(ctx context.Context, id string) (*Workflow, error) {
	resp, err := s.client.get(ctx, "/workflows/"+id, nil)
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewWorkflowNotFoundError(id)
		}
		return nil, err
	}
	return decodeData[Workflow](resp)
}

// Create registers a new workflow and returns it with server-assigned
// fields populated.
func (s *WorkflowsService) Create(ctx context.Context, workflow *Workflow) (*Workflow, error) {
	resp, err := s.client.post(ctx, "/workflows", workflow)
	if err != nil {
		return nil, err
	}
	return decodeData[Workflow](resp)
}

// Update replaces a workflow definition.
func (s *WorkflowsService) Update(ctx context.Context, id string, workflow *Workflow) (*Workflow, error) {
	resp, err := s.client.put(ctx, "/workflows/"+id, workflow)
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewWorkflowNotFoundError(id)
		}
		return nil, err
	}
	return decodeData[Workflow](resp)
}

// Delete removes a workflow.
func (s *WorkflowsService) Delete(ctx context.Context, id string) error {
	_, err := s.client.delete(ctx, "/workflows/"+id)
	if pferrors.IsNotFound(err) {
		return pferrors.NewWorkflowNotFoundError(id)
	}
	return err
}

// Activate enables a workflow's triggers.
func (s *WorkflowsService) Activate(ctx context.Context, id string) (*Workflow, error) {
	return s.setActive(ctx, id, "activate")
}

// Deactivate disables a workflow's triggers.
func (s *WorkflowsService) Deactivate(ctx context.Context, id string) (*Workflow, error) {
	return s.setActive(ctx, id, "deactivate")
}

func (s *WorkflowsService) setActive(ctx context.Context, id, action string) (*Workflow, error) {
	resp, err := s.client.post(ctx, fmt.Sprintf("/workflows/%s/%s", id, action), nil)
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewWorkflowNotFoundError(id)
		}
		return nil, err
	}
	return decodeData[Workflow](resp)
}

// Execute starts an execution of the workflow with the given inputs and
// returns the created execution record immediately; it does not wait for
// completion.
func (s *WorkflowsService) Execute(ctx context.Context, id string, inputs map[string]any) (*Execution, error) {
	body := map[string]any{}
	if inputs != nil {
		body["inputs"] = inputs
	}
	resp, err := s.client.post(ctx, "/workflows/"+id+"/execute", body)
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewWorkflowNotFoundError(id)
		}
		return nil, err
	}
	return decodeData[Execution](resp)
}

// Duplicate copies a workflow under a new name. The copy is created
// inactive.
func (s *WorkflowsService) Duplicate(ctx context.Context, id, name string) (*Workflow, error) {
	resp, err := s.client.post(ctx, "/workflows/"+id+"/duplicate", map[string]string{"name": name})
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewWorkflowNotFoundError(id)
		}
		return nil, err
	}
	return decodeData[Workflow](resp)
}

// Validate checks a workflow definition without persisting it.
func (s *WorkflowsService) Validate(ctx context.Context, workflow *Workflow) (*WorkflowValidation, error) {
	resp, err := s.client.post(ctx, "/workflows/validate", workflow)
	if err != nil {
		return nil, err
	}
	return decodeData[WorkflowValidation](resp)
}

// Export returns the portable JSON document for a workflow.
func (s *WorkflowsService) Export(ctx context.Context, id string) (json.RawMessage, error) {
	resp, err := s.client.get(ctx, "/workflows/"+id+"/export", nil)
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewWorkflowNotFoundError(id)
		}
		return nil, err
	}
	return resp.Data, nil
}

// Import creates a workflow from an exported document.
func (s *WorkflowsService) Import(ctx context.Context, data json.RawMessage) (*Workflow, error) {
	resp, err := s.client.post(ctx, "/workflows/import", data)
	if err != nil {
		return nil, err
	}
	return decodeData[Workflow](resp)
}

// Executions lists the executions of one workflow.
func (s *WorkflowsService) Executions(ctx context.Context, id string, opts *ExecutionListOptions) (*Page[Execution], error) {
	var o ExecutionListOptions
	if opts != nil {
		o = *opts
	}
	resp, err := s.client.get(ctx, "/workflows/"+id+"/executions", o.query())
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewWorkflowNotFoundError(id)
		}
		return nil, err
	}
	return decodeList[Execution](resp)
}
