// Package mock provides test doubles for the ai package interfaces.
//
// Each mock carries injectable function fields; when a field is nil the mock
// falls back to deterministic default behavior, so tests only override what
// they assert on.
package mock
