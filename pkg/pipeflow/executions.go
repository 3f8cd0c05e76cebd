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
	"time"

	pferrors "github.com/pipeflowhq/pipeflow-go/pkg/errors"
)

// DefaultPollInterval is the wait between polls in WaitForCompletion when
// the caller passes zero.
const DefaultPollInterval = 2 * time.Second

// ExecutionsService manages workflow executions.
type ExecutionsService struct {
	client *Client
}

// List returns one page of executions across all workflows, optionally
// filtered.
func (s *ExecutionsService) List(ctx context.Context, opts *ExecutionListOptions) (*Page[Execution], error) {
	var o ExecutionListOptions
	if opts != nil {
		o = *opts
	}
	resp, err := s.client.get(ctx, "/api/executions", o.query())
	if err != nil {
		return nil, err
	}
	return decodeList[Execution](resp)
}

// Get fetches a single execution by ID.
func (s *ExecutionsService) Get(ctx context.Context, id string) (*Execution, error) {
	resp, err := s.client.get(ctx, "/api/executions/"+id, nil)
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewExecutionNotFoundError(id)
		}
		return nil, err
	}
	return decodeData[Execution](resp)
}

// Cancel requests cancellation of a running execution. Cancelling an
// already-terminal execution is an error from the platform.
func (s *ExecutionsService) Cancel(ctx context.Context, id string) (*Execution, error) {
	resp, err := s.client.post(ctx, "/api/executions/"+id+"/cancel", nil)
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewExecutionNotFoundError(id)
		}
		return nil, err
	}
	return decodeData[Execution](resp)
}

// Retry re-runs a failed execution with its original inputs and returns
// the new execution record.
func (s *ExecutionsService) Retry(ctx context.Context, id string) (*Execution, error) {
	resp, err := s.client.post(ctx, "/api/executions/"+id+"/retry", nil)
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewExecutionNotFoundError(id)
		}
		return nil, err
	}
	return decodeData[Execution](resp)
}

// Delete removes an execution record.
func (s *ExecutionsService) Delete(ctx context.Context, id string) error {
	_, err := s.client.delete(ctx, "/api/executions/"+id)
	if pferrors.IsNotFound(err) {
		return pferrors.NewExecutionNotFoundError(id)
	}
	return err
}

// Logs returns the log lines produced by an execution.
func (s *ExecutionsService) Logs(ctx context.Context, id string) ([]ExecutionLogEntry, error) {
	resp, err := s.client.get(ctx, "/api/executions/"+id+"/logs", nil)
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewExecutionNotFoundError(id)
		}
		return nil, err
	}
	entries, err := decodeData[[]ExecutionLogEntry](resp)
	if err != nil {
		return nil, err
	}
	return *entries, nil
}

// NodeData returns the captured input and output of one node run within an
// execution.
func (s *ExecutionsService) NodeData(ctx context.Context, id, nodeID string) (*NodeData, error) {
	resp, err := s.client.get(ctx, "/api/executions/"+id+"/nodes/"+nodeID, nil)
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, pferrors.NewExecutionNotFoundError(id)
		}
		return nil, err
	}
	return decodeData[NodeData](resp)
}

// Statistics aggregates execution outcomes, optionally filtered the same
// way List is.
func (s *ExecutionsService) Statistics(ctx context.Context, opts *ExecutionListOptions) (*ExecutionStatistics, error) {
	var o ExecutionListOptions
	if opts != nil {
		o = *opts
	}
	resp, err := s.client.get(ctx, "/api/executions/statistics", o.query())
	if err != nil {
		return nil, err
	}
	return decodeData[ExecutionStatistics](resp)
}

// WaitForCompletion polls until the execution reaches a terminal status or
// the context is done. Poll failures other than cancellation are retried
// on the next tick; transient blips should not abort a long wait.
func (s *ExecutionsService) WaitForCompletion(ctx context.Context, id string, pollInterval time.Duration) (*Execution, error) {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	for {
		execution, err := s.Get(ctx, id)
		if err != nil {
			if pferrors.IsNotFound(err) || ctx.Err() != nil {
				return nil, err
			}
			s.client.logger.Debug("execution poll failed", "execution_id", id, "error", err)
		} else if execution.Status.IsTerminal() {
			return execution, nil
		}

		if err := sleepCtx(ctx, pollInterval); err != nil {
			return nil, &pferrors.ExecutionError{
				Message:     "wait for completion cancelled",
				Code:        pferrors.CodeExecution,
				ExecutionID: id,
			}
		}
	}
}
