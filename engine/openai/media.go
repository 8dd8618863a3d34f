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

package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/poiesic/tessera/engine"
)

// Media implements the OpenAI-backed media capabilities. The zero value is
// not usable; construct it with NewMedia.
type Media struct {
	client openai.Client

	imageModel      openai.ImageModel
	speechModel     openai.SpeechModel
	voice           openai.AudioSpeechNewParamsVoice
	transcribeModel openai.AudioModel
}

// NewMedia creates a media client. With no options the underlying client
// reads OPENAI_API_KEY from the environment; pass option.WithAPIKey or
// option.WithBaseURL to target a different endpoint.
func NewMedia(opts ...option.RequestOption) *Media {
	return &Media{
		client:          openai.NewClient(opts...),
		imageModel:      openai.ImageModelDallE3,
		speechModel:     openai.SpeechModelTTS1,
		voice:           openai.AudioSpeechNewParamsVoiceAlloy,
		transcribeModel: openai.AudioModelWhisper1,
	}
}

// EngineID derives the stable registry ID for a named media engine.
func EngineID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("tessera:engine:"+name))
}

// Engine bundles the media capabilities under a stable registry entry. The
// engine ID is derived from the name, so restarts resolve to the same
// engine without persisted registry state.
func (m *Media) Engine(name string) *engine.Engine {
	return &engine.Engine{
		Id:                EngineID(name),
		Name:              name,
		ImageGenerator:    m,
		SpeechSynthesizer: m,
		Transcriber:       m,
	}
}

// GenerateImage renders the prompt and returns the PNG bytes.
func (m *Media) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	resp, err := m.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          m.imageModel,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
		Size:           openai.ImageGenerateParamsSize1024x1024,
	})
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("image generation returned no images")
	}
	image, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return image, nil
}

// Synthesize renders the text as speech and returns the MP3 bytes.
func (m *Media) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := m.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model: m.speechModel,
		Input: text,
		Voice: m.voice,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}
	return audio, nil
}

// Transcribe converts recorded audio into text.
func (m *Media) Transcribe(ctx context.Context, name string, audio []byte) (string, error) {
	resp, err := m.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), name, "application/octet-stream"),
		Model: m.transcribeModel,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return resp.Text, nil
}
