// SPDX-License-Identifier: MPL-2.0

// Package transform asks a language model to rewrite a single-stage Dockerfile into
// a multi-stage one. The Transformer interface is what the conversion loop depends
// on; GeminiClient implements it over the Gemini generateContent REST endpoint.
package transform
