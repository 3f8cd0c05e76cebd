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

// Package pipeflow is the Go client SDK for the Pipeflow workflow-automation
// platform.
//
// A Client carries typed resource managers for workflows, executions,
// credentials, and AI operations, an authenticated request pipeline with
// retry, and a streaming channel for real-time execution updates.
//
// Example usage:
//
//	client, err := pipeflow.NewClient(
//	    pipeflow.ClientConfig{BaseURL: "https://api.pipeflow.dev"},
//	    pipeflow.AuthConfig{APIKey: os.Getenv("PIPEFLOW_API_KEY")},
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	page, err := client.Workflows.List(ctx, pipeflow.WorkflowListOptions{
//	    ListOptions: pipeflow.ListOptions{Page: 1, PerPage: 20},
//	})
//
// All failures surface as typed errors from pkg/errors; callers branch with
// errors.As or the IsNotFound/IsRateLimit/IsAuth predicates.
package pipeflow
