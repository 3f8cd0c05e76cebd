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

	pferrors "github.com/pipeflowhq/pipeflow-go/pkg/errors"
)

// AIService exposes the platform's AI surface: completions, embeddings,
// vector search, and agents.
type AIService struct {
	client *Client
}

// Providers lists the AI backends configured on the platform.
func (s *AIService) Providers(ctx context.Context) ([]AIProvider, error) {
	resp, err := s.client.get(ctx, "/api/ai/providers", nil)
	if err != nil {
		return nil, err
	}
	providers, err := decodeData[[]AIProvider](resp)
	if err != nil {
		return nil, err
	}
	return *providers, nil
}

// Complete runs a text completion through the platform's configured
// provider.
func (s *AIService) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	resp, err := s.client.post(ctx, "/api/ai/completions", req)
	if err != nil {
		return nil, err
	}
	return decodeData[Completion](resp)
}

// Embed computes embeddings for the given inputs.
func (s *AIService) Embed(ctx context.Context, req *EmbeddingRequest) (*Embedding, error) {
	resp, err := s.client.post(ctx, "/api/ai/embeddings", req)
	if err != nil {
		return nil, err
	}
	return decodeData[Embedding](resp)
}

// VectorSearch queries a vector collection on the platform.
func (s *AIService) VectorSearch(ctx context.Context, req *VectorSearchRequest) (*VectorSearchResult, error) {
	resp, err := s.client.post(ctx, "/api/ai/vector/search", req)
	if err != nil {
		return nil, err
	}
	return decodeData[VectorSearchResult](resp)
}

// Agents lists the configured AI agents.
func (s *AIService) Agents(ctx context.Context) ([]Agent, error) {
	resp, err := s.client.get(ctx, "/api/ai/agents", nil)
	if err != nil {
		return nil, err
	}
	agents, err := decodeData[[]Agent](resp)
	if err != nil {
		return nil, err
	}
	return *agents, nil
}

// CreateAgent registers a new AI agent.
func (s *AIService) CreateAgent(ctx context.Context, req *AgentRequest) (*Agent, error) {
	resp, err := s.client.post(ctx, "/api/ai/agents", req)
	if err != nil {
		return nil, err
	}
	return decodeData[Agent](resp)
}

// ChatWithAgent sends messages to an agent and returns its reply.
func (s *AIService) ChatWithAgent(ctx context.Context, agentID string, messages []ChatMessage) (*AgentReply, error) {
	body := map[string]any{"messages": messages}
	resp, err := s.client.post(ctx, "/api/ai/agents/"+agentID+"/chat", body)
	if err != nil {
		if pferrors.IsNotFound(err) {
			return nil, &pferrors.Error{Message: "Agent with ID \"" + agentID + "\" not found", Code: pferrors.CodeNotFound}
		}
		return nil, err
	}
	return decodeData[AgentReply](resp)
}
