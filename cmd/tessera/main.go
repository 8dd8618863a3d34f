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

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go/option"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/tessera"
	"github.com/poiesic/tessera/ai"
	"github.com/poiesic/tessera/core"
	"github.com/poiesic/tessera/engine"
	engineopenai "github.com/poiesic/tessera/engine/openai"
	"github.com/poiesic/tessera/ingestion"
	"github.com/poiesic/tessera/reembed"
	"github.com/poiesic/tessera/section"
	"github.com/poiesic/tessera/vector/qdrant"
)

func main() {
	app := &cli.App{
		Name:  "tessera",
		Usage: "Document ingestion and knowledge graph construction",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "Path to the data directory",
				Value:   "./tessera_data",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "OpenAI-compatible service host URL (embeddings and completions)",
				Value: "http://localhost:11434/v1",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
				Value: "embeddinggemma",
			},
			&cli.StringFlag{
				Name:  "completion-model",
				Usage: "Completion model name",
				Value: "qwen2.5:3b",
			},
			&cli.StringFlag{
				Name:  "qdrant-host",
				Usage: "Qdrant host (omit to keep vectors in process memory)",
			},
			&cli.IntFlag{
				Name:  "qdrant-port",
				Usage: "Qdrant gRPC port",
				Value: 6334,
			},
			&cli.StringFlag{
				Name:    "openai-api-key",
				Usage:   "API key enabling the OpenAI media engine (images, speech, transcription)",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "add",
				Usage:  "Register a document for ingestion",
				Action: addCommand,
				Flags: []cli.Flag{
					userFlag(),
					&cli.StringFlag{
						Name:     "category",
						Usage:    "Document category (file, website, quick-note, audio)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "content",
						Usage: "Inline content (quick notes only)",
					},
					&cli.StringFlag{
						Name:  "locator",
						Usage: "Object path or URL of the source (file, website, audio)",
					},
				},
			},
			{
				Name:   "process",
				Usage:  "Run the full ingestion sequence for a document",
				Action: processCommand,
				Flags: []cli.Flag{
					idFlag("Document ID"),
					userFlag(),
					&cli.BoolFlag{Name: "tag", Usage: "Run the tagging stage"},
					&cli.BoolFlag{Name: "summarize", Usage: "Run the summarize stage"},
					&cli.BoolFlag{Name: "podcast", Usage: "Run the podcast stage (requires the OpenAI media engine)"},
				},
			},
			{
				Name:   "graph",
				Usage:  "Run only the graph construction stage for a document",
				Action: graphCommand,
				Flags:  []cli.Flag{idFlag("Document ID"), userFlag()},
			},
			{
				Name:   "summarize",
				Usage:  "Run only the summarize stage for a document",
				Action: summarizeCommand,
				Flags:  []cli.Flag{idFlag("Document ID"), userFlag()},
			},
			{
				Name:   "section",
				Usage:  "Aggregate a section's documents into its markdown",
				Action: sectionCommand,
				Flags: []cli.Flag{
					idFlag("Section ID"),
					userFlag(),
					&cli.BoolFlag{Name: "illustrate", Usage: "Plan and generate illustrations (requires the OpenAI media engine)"},
				},
			},
			{
				Name:      "search",
				Usage:     "Search ingested chunks",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					userFlag(),
					&cli.IntFlag{
						Name:  "max-hits",
						Usage: "Maximum number of results",
						Value: 5,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Regenerate chunk embeddings after an embedding model change",
				Action: reembedCommand,
				Flags: []cli.Flag{
					userFlag(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to embed per request",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: reembed.DefaultConfig().RetryDelay,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func idFlag(usage string) cli.Flag {
	return &cli.Uint64Flag{
		Name:     "id",
		Usage:    usage,
		Required: true,
	}
}

func userFlag() cli.Flag {
	return &cli.Uint64Flag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "Owning user ID",
		Required: true,
	}
}

// openSystem builds the system from the global flags.
func openSystem(c *cli.Context) (*tessera.System, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithCompletionModel(c.String("completion-model")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	opts := []tessera.SystemOption{tessera.WithAIConfig(aiConfig)}

	if host := c.String("qdrant-host"); host != "" {
		store, err := qdrant.NewStore(host, c.Int("qdrant-port"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
		}
		opts = append(opts, tessera.WithVectorStore(store))
	}

	if key := c.String("openai-api-key"); key != "" {
		media := engineopenai.NewMedia(option.WithAPIKey(key))
		opts = append(opts, tessera.WithEngines(media.Engine("openai-media")))
	}

	return tessera.NewSystem(c.String("data"), opts...)
}

// userEngines maps capabilities onto the engines the CLI wires up: markdown
// for conversion, the OpenAI media engine for everything else when a key is
// configured.
func userEngines(c *cli.Context) engine.UserConfig {
	config := engine.UserConfig{
		engine.CapabilityFileAnalysis:      tessera.MarkdownEngineID,
		engine.CapabilityWebsiteConversion: tessera.MarkdownEngineID,
	}
	if c.String("openai-api-key") != "" {
		mediaID := engineopenai.EngineID("openai-media")
		config[engine.CapabilityImageGeneration] = mediaID
		config[engine.CapabilitySpeechSynthesis] = mediaID
		config[engine.CapabilityTranscription] = mediaID
	}
	return config
}

func addCommand(c *cli.Context) error {
	var category core.DocumentCategory
	switch c.String("category") {
	case "file":
		category = core.CategoryFile
	case "website":
		category = core.CategoryWebsite
	case "quick-note":
		category = core.CategoryQuickNote
	case "audio":
		category = core.CategoryAudio
	default:
		return fmt.Errorf("unknown category %q: must be one of file, website, quick-note, audio", c.String("category"))
	}

	if category == core.CategoryQuickNote && c.String("content") == "" {
		return fmt.Errorf("quick notes need --content")
	}
	if category != core.CategoryQuickNote && c.String("locator") == "" {
		return fmt.Errorf("%s documents need --locator", c.String("category"))
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	added, err := sys.DocumentRepository().AddDocuments(context.Background(), &core.Document{
		Creator:  core.ID(c.Uint64("user")),
		Category: category,
		Content:  c.String("content"),
		Locator:  c.String("locator"),
	})
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}

	fmt.Printf("%d\n", added[0].Id)
	return nil
}

func processCommand(c *cli.Context) error {
	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	pipeline, err := sys.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	flags := ingestion.ProcessFlags{
		Tag:       c.Bool("tag"),
		Summarize: c.Bool("summarize"),
		Podcast:   c.Bool("podcast"),
	}
	return pipeline.ProcessDocument(context.Background(),
		core.ID(c.Uint64("id")), core.ID(c.Uint64("user")), userEngines(c), flags)
}

func graphCommand(c *cli.Context) error {
	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	pipeline, err := sys.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	return pipeline.ProcessDocumentGraph(context.Background(),
		core.ID(c.Uint64("id")), core.ID(c.Uint64("user")))
}

func summarizeCommand(c *cli.Context) error {
	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	pipeline, err := sys.NewIngestionPipeline()
	if err != nil {
		return err
	}
	defer pipeline.Release()

	return pipeline.ProcessDocumentSummarize(context.Background(),
		core.ID(c.Uint64("id")), core.ID(c.Uint64("user")))
}

func sectionCommand(c *cli.Context) error {
	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	aggregator, err := sys.NewSectionAggregator()
	if err != nil {
		return err
	}

	return aggregator.ProcessSection(context.Background(),
		core.ID(c.Uint64("id")), core.ID(c.Uint64("user")), userEngines(c),
		section.Flags{Illustrate: c.Bool("illustrate")})
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if query == "" {
		return fmt.Errorf("search needs a query")
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	searcher, err := sys.NewSearcher()
	if err != nil {
		return err
	}

	results, err := searcher.FindSimilar(context.Background(),
		core.ID(c.Uint64("user")), query, c.Int("max-hits"))
	if err != nil {
		return err
	}

	fmt.Printf("Found %d hits\n", len(results))
	for i, hit := range results {
		fmt.Printf("%d: '%s' (%d)[%0.3f]\n", i, hit.Chunk.Text, hit.Chunk.Id, hit.Score)
	}
	return nil
}

func reembedCommand(c *cli.Context) error {
	config := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	sys, err := openSystem(c)
	if err != nil {
		return err
	}
	defer sys.Close()

	reembedder, err := sys.NewChunkReembedder(config, os.Stderr)
	if err != nil {
		return err
	}

	return reembedder.Run(context.Background(), core.ID(c.Uint64("user")))
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
