// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"regexp"
	"strings"
)

// FileName is the build manifest looked up at the repository root.
const FileName = "ViaCBSfile"

var (
	bakeFilePattern = regexp.MustCompile(`(?i)dockerBakeFile\s+["']([^"']+)["']`)
	buildAsPattern  = regexp.MustCompile(`(?is)buildAs\s*\(\s*["']([^"']+)["']\s*\)\s*\{`)

	dockerKeywords = []string{"docker", "Docker", "DOCKER"}
)

// Manifest is what stagecraft reads from a ViaCBSfile.
type Manifest struct {
	// BakeFile is the dockerBakeFile value as written, e.g. "./docker-bake.hcl".
	BakeFile string
	// Platform is the buildAs argument, e.g. "python-pypi".
	Platform string
	// BuildConfig is the trimmed body of the buildAs block.
	BuildConfig string
	// HasDockerSpec is set when the manifest mentions docker at all.
	HasDockerSpec bool
}

// Parse extracts the fields stagecraft needs from ViaCBSfile content. Fields
// that are not present are left empty.
func Parse(content string) Manifest {
	var m Manifest

	for _, kw := range dockerKeywords {
		if strings.Contains(content, kw) {
			m.HasDockerSpec = true
			break
		}
	}

	if match := bakeFilePattern.FindStringSubmatch(content); match != nil {
		m.BakeFile = match[1]
	}

	if loc := buildAsPattern.FindStringSubmatchIndex(content); loc != nil {
		m.Platform = content[loc[2]:loc[3]]
		if body, ok := blockBody(content, loc[1]); ok {
			m.BuildConfig = strings.TrimSpace(body)
		}
	}

	return m
}

// blockBody returns the text between the brace that opens at start-1 and its
// matching closing brace.
func blockBody(content string, start int) (string, bool) {
	depth := 1
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start:i], true
			}
		}
	}
	return "", false
}
