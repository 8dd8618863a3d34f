// Copyright 2025 Poiesic Systems
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


package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// GraphExtractor extracts raw entities and relations from a single chunk of
// text using an LLM. Output is scoped to that chunk; canonicalization across
// chunks happens downstream.
type GraphExtractor struct {
	completer Completer
	maxRounds int
	logger    *slog.Logger
}

// rawExtraction matches the JSON structure expected from the LLM.
type rawExtraction struct {
	Entities []struct {
		Text string `json:"text"`
		Type string `json:"type"`
	} `json:"entities"`
	Relations []struct {
		Source string `json:"source"`
		Type   string `json:"type"`
		Target string `json:"target"`
	} `json:"relations"`
}

// NewGraphExtractor creates a graph extractor over the given completer.
// maxRounds bounds truncated-output continuation; values below 1 fall back
// to the default of 8.
func NewGraphExtractor(completer Completer, maxRounds int) (*GraphExtractor, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer required")
	}
	if maxRounds < 1 {
		maxRounds = 8
	}
	return &GraphExtractor{
		completer: completer,
		maxRounds: maxRounds,
		logger:    slog.Default().With("component", "graph-extractor"),
	}, nil
}

// ExtractGraph extracts entities and relations from one chunk of text.
//
// The request is strict-JSON at temperature 0. If the model truncates its
// output (finish reason "length"), a continuation request is issued with the
// partial output as assistant context, bounded to maxRounds; exceeding the
// bound degrades to a best-effort parse of what was received. Malformed JSON
// yields an empty extraction rather than an error.
func (e *GraphExtractor) ExtractGraph(ctx context.Context, text string) (*GraphExtraction, error) {
	messages := []Message{
		{Role: RoleSystem, Text: buildExtractionPrompt()},
		{Role: RoleUser, Text: text},
	}

	var accumulated strings.Builder
	for round := 0; round < e.maxRounds; round++ {
		result, err := e.completer.Complete(ctx, CompletionRequest{
			Messages:    messages,
			Temperature: 0.0,
			JSONMode:    true,
		})
		if err != nil {
			e.logger.Error("extraction completion failed", "round", round+1, "err", err)
			return nil, err
		}

		accumulated.WriteString(result.Text)
		if result.FinishReason != FinishLength {
			break
		}

		if round == e.maxRounds-1 {
			// Best-effort partial result, not a pipeline-fatal error.
			e.logger.Warn("extraction still truncated at continuation bound",
				"rounds", e.maxRounds, "length", accumulated.Len())
			break
		}

		e.logger.Debug("extraction truncated, continuing", "round", round+1)
		messages = append(messages,
			Message{Role: RoleAssistant, Text: result.Text},
			Message{Role: RoleUser, Text: continuationPrompt},
		)
	}

	return e.parse(accumulated.String()), nil
}

// parse decodes the accumulated response, degrading to an empty extraction
// on malformed JSON.
func (e *GraphExtractor) parse(response string) *GraphExtraction {
	cleaned := repairJSON(stripFences(response))

	var raw rawExtraction
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		e.logger.Warn("malformed extraction response, returning empty set",
			"err", err, "length", len(cleaned))
		return &GraphExtraction{}
	}

	extraction := &GraphExtraction{
		Entities:  make([]ExtractedEntity, 0, len(raw.Entities)),
		Relations: make([]ExtractedRelation, 0, len(raw.Relations)),
	}
	for _, ent := range raw.Entities {
		text := strings.ToLower(strings.TrimSpace(ent.Text))
		entityType := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(ent.Type)), " ", "_")
		if text == "" || !slices.Contains(EntityTypes, entityType) {
			continue
		}
		extraction.Entities = append(extraction.Entities, ExtractedEntity{Text: text, Type: entityType})
	}
	for _, rel := range raw.Relations {
		source := strings.ToLower(strings.TrimSpace(rel.Source))
		target := strings.ToLower(strings.TrimSpace(rel.Target))
		relType := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(rel.Type)), " ", "_")
		if source == "" || target == "" || relType == "" || source == target {
			continue
		}
		extraction.Relations = append(extraction.Relations, ExtractedRelation{
			Source: source,
			Type:   relType,
			Target: target,
		})
	}
	return extraction
}
