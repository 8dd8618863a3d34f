// Package markdown provides the built-in conversion engine: it turns web
// pages and uploaded text files into markdown without calling any external
// model service. Website conversion extracts the readable article from the
// fetched page before converting, so navigation chrome and ads do not end
// up in the knowledge graph.
package markdown
