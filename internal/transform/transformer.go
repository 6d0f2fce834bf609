// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxPriorErrorBytes caps how much validator output is sent back to the model.
// The tail is kept because buildx prints the failing step last.
const maxPriorErrorBytes = 8 << 10

// ErrEmptyResponse is returned when the service answers without any Dockerfile text.
var ErrEmptyResponse = errors.New("transformer returned no content")

// SystemPrompt frames every rewrite request.
const SystemPrompt = `You are an expert Docker engineer. Your task is to convert a single-stage Dockerfile to a multi-stage Dockerfile.

Important requirements:
1. Create a build stage that uses the appropriate base image based on the build platform provided
2. Use the same version/configuration from the existing Dockerfile in the build stage
3. Keep the runtime stage EXACTLY as it is in the original Dockerfile - do not make major changes
4. Only copy necessary artifacts from the build stage to the runtime stage
5. Ensure the final image is optimized and follows Docker best practices
6. Preserve all original functionality, environment variables, and configurations from the runtime stage

Return ONLY the complete multi-stage Dockerfile content, without any explanations or markdown formatting.`

type (
	// Request is one rewrite request.
	Request struct {
		// Content is the Dockerfile to rewrite.
		Content string
		// Platform is the build platform named by the manifest, e.g. "python-pypi".
		Platform string
		// BuildConfig is the body of the manifest's buildAs block, if any.
		BuildConfig string
		// PriorError is the diagnostic of the last failed validation; empty on the first attempt.
		PriorError string
	}

	// Transformer rewrites a Dockerfile. Implementations do not retry; any error
	// ends the current conversion.
	Transformer interface {
		Transform(ctx context.Context, req Request) (string, error)
	}

	// Func adapts a function to the Transformer interface.
	Func func(ctx context.Context, req Request) (string, error)
)

// Transform calls f.
func (f Func) Transform(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// UserPrompt renders the user message for req.
func UserPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString("Convert the following Dockerfile to a multi-stage build.\n")

	if cfg := strings.TrimSpace(req.BuildConfig); cfg != "" {
		sb.WriteString("\nBuild Configuration from buildAs block: Use the below details to configure the build stage base image\n")
		sb.WriteString(cfg)
		sb.WriteString("\n\nUse the specific versions and configurations from the buildAs block above ")
		sb.WriteString("(e.g., pythonVersion, gradleImage, jdkVersionMajor) to determine the exact base image and versions for the build stage.\n")
	} else {
		fmt.Fprintf(&sb, "\nBuild Platform: %s\nUse the appropriate base image for %s based on the existing Dockerfile.\n", req.Platform, req.Platform)
	}

	sb.WriteString("\nOriginal Dockerfile:\n```\n")
	sb.WriteString(req.Content)
	if !strings.HasSuffix(req.Content, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n")

	if prior := strings.TrimSpace(req.PriorError); prior != "" {
		sb.WriteString("\nThe previous version of this Dockerfile failed `docker buildx bake` with:\n```\n")
		sb.WriteString(tail(prior, maxPriorErrorBytes))
		sb.WriteString("\n```\nFix the cause of this failure while keeping the multi-stage layout.\n")
	}

	sb.WriteString("\nCreate a multi-stage Dockerfile with:\n")
	sb.WriteString("1. A build stage that uses the appropriate base image and versions based on the buildAs configuration above\n")
	sb.WriteString("2. A runtime stage that keeps the existing runtime stage as-is (no major changes)\n")
	sb.WriteString("\nReturn the complete multi-stage Dockerfile:")

	return sb.String()
}

// StripCodeFence removes a surrounding Markdown code fence (```dockerfile ... ```)
// and trims the result.
func StripCodeFence(text string) string {
	content := strings.TrimSpace(text)
	if !strings.HasPrefix(content, "```") {
		return content
	}

	lines := strings.Split(content, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.TrimSpace(lines[n-1]) == "```" {
		lines = lines[:n-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// tail keeps the last n bytes of s, less any partial leading rune.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	return "..." + s[start:]
}
