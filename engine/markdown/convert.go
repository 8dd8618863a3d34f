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

package markdown

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"

	"github.com/poiesic/tessera/engine"
)

const (
	defaultFetchTimeout = 30 * time.Second
	maxPageBytes        = 8 << 20
	userAgent           = "tessera/1.0 (+https://github.com/poiesic/tessera)"
)

var excessiveBlankLines = regexp.MustCompile(`\n{4,}`)

// Converter fetches web pages and converts their readable content to
// markdown. It implements engine.WebsiteConverter.
type Converter struct {
	client    *http.Client
	converter *md.Converter
}

// NewConverter creates a converter with a default HTTP client.
func NewConverter() *Converter {
	return NewConverterWithClient(&http.Client{Timeout: defaultFetchTimeout})
}

// NewConverterWithClient creates a converter using the given HTTP client.
func NewConverterWithClient(client *http.Client) *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Converter{
		client:    client,
		converter: converter,
	}
}

// ConvertWebsite fetches the URL and converts its main content to markdown.
func (c *Converter) ConvertWebsite(ctx context.Context, pageURL string) (*engine.WebsiteConversion, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", pageURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}

	body, err := c.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to extract readable content: %w", err)
	}

	content := article.Content
	if strings.TrimSpace(content) == "" {
		// Readability found nothing article-shaped; convert the whole page.
		content = string(body)
	}

	markdown, err := c.converter.ConvertString(content)
	if err != nil {
		return nil, fmt.Errorf("failed to convert html to markdown: %w", err)
	}
	markdown = cleanMarkdown(markdown)

	title := strings.TrimSpace(article.Title)
	description := strings.TrimSpace(article.Excerpt)
	derivedTitle, derivedDescription := DeriveTitleDescription(markdown)
	if title == "" {
		title = derivedTitle
	}
	if description == "" {
		description = derivedDescription
	}

	return &engine.WebsiteConversion{
		Markdown:    markdown,
		Title:       title,
		Description: description,
		Cover:       article.Image,
	}, nil
}

func (c *Converter) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// cleanMarkdown collapses runs of blank lines left behind by stripped
// elements and trims surrounding whitespace.
func cleanMarkdown(markdown string) string {
	markdown = excessiveBlankLines.ReplaceAllString(markdown, "\n\n\n")
	return strings.TrimSpace(markdown)
}
