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

package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/poiesic/tessera/core"
)

const (
	// maxSegmentChars bounds how much text is handed to the recursive
	// splitter at once, capping peak memory on very large documents.
	maxSegmentChars = 100_000

	defaultChunkSize    = 1200
	defaultChunkOverlap = 100
	defaultPollInterval = 2 * time.Second
)

// ActivityChecker reports whether a document is still active, i.e. not
// deleted and not superseded by a newer processing task.
type ActivityChecker interface {
	Active(ctx context.Context, documentID core.ID) (bool, error)
}

// ActivityCheckerFunc adapts a function to the ActivityChecker interface.
type ActivityCheckerFunc func(ctx context.Context, documentID core.ID) (bool, error)

func (f ActivityCheckerFunc) Active(ctx context.Context, documentID core.ID) (bool, error) {
	return f(ctx, documentID)
}

// alwaysActive is the checker used when the caller passes nil.
var alwaysActive = ActivityCheckerFunc(func(context.Context, core.ID) (bool, error) {
	return true, nil
})

// ChunkOption configures a ChunkStream.
type ChunkOption func(*ChunkStream)

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) ChunkOption {
	return func(s *ChunkStream) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithChunkOverlap sets the overlap between adjacent chunks in characters.
func WithChunkOverlap(overlap int) ChunkOption {
	return func(s *ChunkStream) {
		if overlap >= 0 {
			s.chunkOverlap = overlap
		}
	}
}

// WithPollInterval sets how often the activity checker is polled between
// chunks. Zero polls before every chunk.
func WithPollInterval(interval time.Duration) ChunkOption {
	return func(s *ChunkStream) {
		if interval >= 0 {
			s.pollInterval = interval
		}
	}
}

// ChunkStream lazily yields a document's chunks in strictly increasing index
// order. The stream is not restartable mid-way; restarting means building a
// new stream, which re-chunks from scratch. Chunk IDs are content-addressed,
// so a re-run yields the identical ID sequence.
//
// Iterate in the bufio.Scanner style:
//
//	for stream.Next(ctx) {
//		chunk := stream.Chunk()
//		...
//	}
//	if err := stream.Err(); err != nil { ... }
type ChunkStream struct {
	documentID core.ID
	checker    ActivityChecker

	chunkSize    int
	chunkOverlap int
	pollInterval time.Duration

	segments []string // unsplit large segments, consumed front to back
	pending  []string // chunk texts of the current segment
	index    int
	lastPoll time.Time

	current *core.Chunk
	err     error
}

// NewChunkStream builds a chunk stream over the document's normalized text.
// Text that is empty after trimming is a hard failure (core.ErrEmptyContent).
// A nil checker disables cancellation polling.
func NewChunkStream(documentID core.ID, text string, checker ActivityChecker, opts ...ChunkOption) (*ChunkStream, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.ErrEmptyContent
	}
	if checker == nil {
		checker = alwaysActive
	}

	stream := &ChunkStream{
		documentID:   documentID,
		checker:      checker,
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
		pollInterval: defaultPollInterval,
		segments:     splitSegments(text, maxSegmentChars),
		lastPoll:     time.Now(),
	}
	for _, opt := range opts {
		opt(stream)
	}
	return stream, nil
}

// Next advances to the next chunk. It returns false at end of stream or on
// error; Err distinguishes the two.
func (s *ChunkStream) Next(ctx context.Context) bool {
	if s.err != nil {
		return false
	}

	if err := s.pollActivity(ctx); err != nil {
		s.err = err
		s.current = nil
		return false
	}

	for len(s.pending) == 0 {
		if len(s.segments) == 0 {
			s.current = nil
			return false
		}
		segment := s.segments[0]
		s.segments = s.segments[1:]

		splitter := textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(s.chunkSize),
			textsplitter.WithChunkOverlap(s.chunkOverlap),
		)
		parts, err := splitter.SplitText(segment)
		if err != nil {
			s.err = fmt.Errorf("failed to split text: %w", err)
			s.current = nil
			return false
		}
		s.pending = parts
	}

	text := s.pending[0]
	s.pending = s.pending[1:]
	s.current = &core.Chunk{
		Id:         core.ChunkID(s.documentID, s.index, text),
		DocumentId: s.documentID,
		Index:      s.index,
		Text:       text,
	}
	s.index++
	return true
}

// Chunk returns the chunk produced by the last successful Next call.
func (s *ChunkStream) Chunk() *core.Chunk {
	return s.current
}

// Err returns the first error encountered, nil on clean end of stream.
func (s *ChunkStream) Err() error {
	return s.err
}

// pollActivity consults the activity checker at the configured cadence and
// converts a negative answer into core.ErrSuperseded.
func (s *ChunkStream) pollActivity(ctx context.Context) error {
	if time.Since(s.lastPoll) < s.pollInterval {
		return nil
	}
	s.lastPoll = time.Now()

	active, err := s.checker.Active(ctx, s.documentID)
	if err != nil {
		return fmt.Errorf("activity check failed: %w", err)
	}
	if !active {
		return fmt.Errorf("%w: document %d", core.ErrSuperseded, s.documentID)
	}
	return nil
}

// splitSegments breaks text into segments of at most limit characters,
// splitting on rune boundaries.
func splitSegments(text string, limit int) []string {
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}
	var segments []string
	for start := 0; start < len(runes); start += limit {
		end := start + limit
		if end > len(runes) {
			end = len(runes)
		}
		segments = append(segments, string(runes[start:end]))
	}
	return segments
}
