package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// EntityJudge decides whether two mentions sharing the same text and type
// refer to the same real-world entity, based on their surrounding contexts.
// It is the final tier of entity resolution, consulted only when embedding
// similarity lands in the ambiguous band.
type EntityJudge struct {
	completer Completer
	logger    *slog.Logger
}

// NewEntityJudge creates an entity judge over the given completer.
func NewEntityJudge(completer Completer) (*EntityJudge, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer required")
	}
	return &EntityJudge{
		completer: completer,
		logger:    slog.Default().With("component", "entity-judge"),
	}, nil
}

// SameEntity reports whether the mention described by contextA and the one
// described by contextB denote the same entity. An unparseable verdict is
// treated as "different", which keeps the mentions apart rather than merging
// them on bad evidence.
func (j *EntityJudge) SameEntity(ctx context.Context, text, entityType, contextA, contextB string) (bool, error) {
	prompt := fmt.Sprintf(judgePromptTemplate, text, entityType, contextA, contextB)

	result, err := j.completer.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleUser, Text: prompt},
		},
		Temperature: 0.0,
		JSONMode:    true,
	})
	if err != nil {
		return false, fmt.Errorf("judge completion: %w", err)
	}

	var verdict struct {
		Same bool `json:"same"`
	}
	cleaned := repairJSON(stripFences(result.Text))
	if err := json.Unmarshal([]byte(cleaned), &verdict); err != nil {
		j.logger.Warn("unparseable judge verdict, treating as different",
			"entity", text, "err", err)
		return false, nil
	}
	return verdict.Same, nil
}
