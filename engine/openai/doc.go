// Package openai provides a media engine backed by the OpenAI API:
// image generation, speech synthesis and audio transcription. Text
// completion and embedding go through the ai package instead; this engine
// only covers the media capabilities the conversion pipeline dispatches
// through the engine registry.
package openai
