package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Capability identifies one family of engine functionality.
type Capability int

const (
	// CapabilityFileAnalysis converts an uploaded file into markdown.
	CapabilityFileAnalysis Capability = iota + 1
	// CapabilityWebsiteConversion fetches a URL and converts it to markdown.
	CapabilityWebsiteConversion
	// CapabilityImageGeneration renders an image from a text prompt.
	CapabilityImageGeneration
	// CapabilitySpeechSynthesis renders speech audio from text.
	CapabilitySpeechSynthesis
	// CapabilityTranscription converts recorded audio into text.
	CapabilityTranscription
)

// String returns the capability name used in logs and errors.
func (c Capability) String() string {
	switch c {
	case CapabilityFileAnalysis:
		return "file-analysis"
	case CapabilityWebsiteConversion:
		return "website-conversion"
	case CapabilityImageGeneration:
		return "image-generation"
	case CapabilitySpeechSynthesis:
		return "speech-synthesis"
	case CapabilityTranscription:
		return "transcription"
	default:
		return fmt.Sprintf("Capability(%d)", int(c))
	}
}

// FileAnalyser converts an uploaded file into markdown.
type FileAnalyser interface {
	// AnalyseFile converts the named file content into markdown.
	AnalyseFile(ctx context.Context, name string, content []byte) (string, error)
}

// WebsiteConversion is the result of converting a web page.
type WebsiteConversion struct {
	Markdown    string
	Title       string
	Description string
	Cover       string // URL of the page's lead image, if any
}

// WebsiteConverter fetches a URL and converts its main content to markdown.
type WebsiteConverter interface {
	ConvertWebsite(ctx context.Context, url string) (*WebsiteConversion, error)
}

// ImageGenerator renders an image from a text prompt.
type ImageGenerator interface {
	// GenerateImage returns the encoded image bytes (PNG unless the
	// implementation documents otherwise).
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// SpeechSynthesizer renders speech audio from text.
type SpeechSynthesizer interface {
	// Synthesize returns encoded audio (MP3 unless the implementation
	// documents otherwise).
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, name string, audio []byte) (string, error)
}

// Engine bundles the capabilities one backend provides. Nil fields mean the
// capability is unsupported.
type Engine struct {
	Id   uuid.UUID
	Name string

	FileAnalyser      FileAnalyser
	WebsiteConverter  WebsiteConverter
	ImageGenerator    ImageGenerator
	SpeechSynthesizer SpeechSynthesizer
	Transcriber       Transcriber
}

// Supports reports whether the engine provides the capability.
func (e *Engine) Supports(capability Capability) bool {
	switch capability {
	case CapabilityFileAnalysis:
		return e.FileAnalyser != nil
	case CapabilityWebsiteConversion:
		return e.WebsiteConverter != nil
	case CapabilityImageGeneration:
		return e.ImageGenerator != nil
	case CapabilitySpeechSynthesis:
		return e.SpeechSynthesizer != nil
	case CapabilityTranscription:
		return e.Transcriber != nil
	default:
		return false
	}
}

// UserConfig maps capabilities onto the engine a user selected for each.
type UserConfig map[Capability]uuid.UUID

// Registry holds the registered engines. It is immutable after construction
// and safe for concurrent use.
type Registry struct {
	engines map[uuid.UUID]*Engine
}

// NewRegistry creates a registry over the given engines.
func NewRegistry(engines ...*Engine) (*Registry, error) {
	registry := &Registry{engines: make(map[uuid.UUID]*Engine, len(engines))}
	for _, e := range engines {
		if e.Id == uuid.Nil {
			return nil, fmt.Errorf("engine %q has no id", e.Name)
		}
		if _, dup := registry.engines[e.Id]; dup {
			return nil, fmt.Errorf("duplicate engine id %s", e.Id)
		}
		registry.engines[e.Id] = e
	}
	return registry, nil
}

// Resolve returns the engine the user configured for the capability,
// verifying the engine exists and actually provides it.
func (r *Registry) Resolve(config UserConfig, capability Capability) (*Engine, error) {
	engineID, ok := config[capability]
	if !ok || engineID == uuid.Nil {
		return nil, fmt.Errorf("%w: %s", ErrNoEngineConfigured, capability)
	}
	e, ok := r.engines[engineID]
	if !ok {
		return nil, fmt.Errorf("%w: %s (capability %s)", ErrUnknownEngine, engineID, capability)
	}
	if !e.Supports(capability) {
		return nil, fmt.Errorf("%w: %s lacks %s", ErrCapabilityUnsupported, e.Name, capability)
	}
	return e, nil
}

// Engines lists the registered engines, for status surfaces.
func (r *Registry) Engines() []*Engine {
	result := make([]*Engine, 0, len(r.engines))
	for _, e := range r.engines {
		result = append(result, e)
	}
	return result
}
