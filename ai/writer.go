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
	"strings"
)

// Summarizer maintains a running summary of a document processed chunk by
// chunk. The summary is folded forward: each call rewrites it to also cover
// the next chunk, so memory use stays flat regardless of document length.
type Summarizer struct {
	completer Completer
	logger    *slog.Logger
}

// NewSummarizer creates a summarizer over the given completer.
func NewSummarizer(completer Completer) (*Summarizer, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer required")
	}
	return &Summarizer{
		completer: completer,
		logger:    slog.Default().With("component", "summarizer"),
	}, nil
}

// Fold returns the summary updated to also cover chunk. An empty current
// summary starts a fresh one.
func (s *Summarizer) Fold(ctx context.Context, current, chunk string) (string, error) {
	prompt := fmt.Sprintf(summarizePromptTemplate, current, chunk)

	result, err := s.completer.Complete(ctx, CompletionRequest{
		Messages:    []Message{{Role: RoleUser, Text: prompt}},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("summarize completion: %w", err)
	}

	updated := strings.TrimSpace(result.Text)
	if updated == "" {
		// Keep the previous summary rather than losing it to an empty reply.
		s.logger.Warn("empty summary reply, keeping previous summary")
		return current, nil
	}
	return updated, nil
}

// Tagger extracts topical keywords for a document.
type Tagger struct {
	completer Completer
	logger    *slog.Logger
}

// NewTagger creates a tagger over the given completer.
func NewTagger(completer Completer) (*Tagger, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer required")
	}
	return &Tagger{
		completer: completer,
		logger:    slog.Default().With("component", "tagger"),
	}, nil
}

// Tags returns lowercase topical keywords for the document text. Malformed
// output degrades to no tags.
func (t *Tagger) Tags(ctx context.Context, text string) ([]string, error) {
	prompt := fmt.Sprintf(tagPromptTemplate, text)

	result, err := t.completer.Complete(ctx, CompletionRequest{
		Messages:    []Message{{Role: RoleUser, Text: prompt}},
		Temperature: 0.0,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("tag completion: %w", err)
	}

	var raw []string
	cleaned := stripFences(result.Text)
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		t.logger.Warn("malformed tag response, skipping tags", "err", err)
		return nil, nil
	}

	tags := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, tag := range raw {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags, nil
}

// SectionWriter merges newly ready source documents into a curated markdown
// section, guided by the section's known entities and relations.
type SectionWriter struct {
	completer Completer
	logger    *slog.Logger
}

// NewSectionWriter creates a section writer over the given completer.
func NewSectionWriter(completer Completer) (*SectionWriter, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer required")
	}
	return &SectionWriter{
		completer: completer,
		logger:    slog.Default().With("component", "section-writer"),
	}, nil
}

// MergeSection returns the section markdown rewritten to integrate the given
// source documents. graphContext is a textual rendering of the entities and
// relations known for the sources.
func (w *SectionWriter) MergeSection(ctx context.Context, existing, graphContext string, sources []string) (string, error) {
	if len(sources) == 0 {
		return existing, nil
	}

	var sourceBlock strings.Builder
	for i, src := range sources {
		fmt.Fprintf(&sourceBlock, "--- source %d ---\n%s\n", i+1, src)
	}
	prompt := fmt.Sprintf(sectionMergePromptTemplate, existing, graphContext, sourceBlock.String())

	result, err := w.completer.Complete(ctx, CompletionRequest{
		Messages:    []Message{{Role: RoleUser, Text: prompt}},
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("section merge completion: %w", err)
	}

	merged := strings.TrimSpace(result.Text)
	if merged == "" {
		return "", fmt.Errorf("section merge returned empty content")
	}
	return merged, nil
}

// IllustrationPlanner asks the model where images would help a markdown
// document and what to generate for each spot. Markers of the form
// "{{image:<id>}}" are embedded in the returned markdown.
type IllustrationPlanner struct {
	completer Completer
	maxImages int
	logger    *slog.Logger
}

// NewIllustrationPlanner creates a planner over the given completer.
// maxImages bounds how many illustrations a single plan may propose; values
// below 1 fall back to 3.
func NewIllustrationPlanner(completer Completer, maxImages int) (*IllustrationPlanner, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer required")
	}
	if maxImages < 1 {
		maxImages = 3
	}
	return &IllustrationPlanner{
		completer: completer,
		maxImages: maxImages,
		logger:    slog.Default().With("component", "illustration-planner"),
	}, nil
}

// Plan proposes illustrations for markdown. On malformed output the original
// markdown is returned with no images, so illustration stays best-effort.
func (p *IllustrationPlanner) Plan(ctx context.Context, markdown string) (string, []PlannedImage, error) {
	prompt := fmt.Sprintf(illustrationPlanPromptTemplate, p.maxImages, markdown)

	result, err := p.completer.Complete(ctx, CompletionRequest{
		Messages:    []Message{{Role: RoleUser, Text: prompt}},
		Temperature: 0.3,
		JSONMode:    true,
	})
	if err != nil {
		return "", nil, fmt.Errorf("illustration plan completion: %w", err)
	}

	var plan struct {
		Document string         `json:"document"`
		Images   []PlannedImage `json:"images"`
	}
	cleaned := repairJSON(stripFences(result.Text))
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil || plan.Document == "" {
		p.logger.Warn("unusable illustration plan, keeping document as-is", "err", err)
		return markdown, nil, nil
	}

	images := make([]PlannedImage, 0, len(plan.Images))
	for _, img := range plan.Images {
		if img.Id == "" || img.Prompt == "" {
			continue
		}
		images = append(images, img)
		if len(images) == p.maxImages {
			break
		}
	}
	return plan.Document, images, nil
}
