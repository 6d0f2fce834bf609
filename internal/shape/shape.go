// SPDX-License-Identifier: MPL-2.0

package shape

import (
	"errors"
	"fmt"
	"strings"

	"github.com/moby/buildkit/frontend/dockerfile/parser"
)

// ErrNoStages is returned by Stages when the text contains no FROM instruction.
var ErrNoStages = errors.New("dockerfile has no stages")

// Stage is one FROM instruction of a Dockerfile.
type Stage struct {
	// Index is the zero-based position of the stage.
	Index int
	// BaseImage is the image reference after FROM.
	BaseImage string
	// Name is the AS alias, empty when the stage is unnamed.
	Name string
	// Platform is the --platform flag value, if any.
	Platform string
	// Line is the 1-based line the instruction starts on.
	Line int
}

// IsMultiStage reports whether text has more than one FROM line. Blank lines and
// lines whose first non-blank character is '#' are ignored; the keyword match is
// case-insensitive.
func IsMultiStage(text string) bool {
	return CountFromLines(text) > 1
}

// CountFromLines returns the number of lines whose leading token is FROM.
func CountFromLines(text string) int {
	count := 0
	for raw := range strings.Lines(text) {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if strings.EqualFold(fields[0], "FROM") {
			count++
		}
	}
	return count
}

// Stages parses text with the BuildKit Dockerfile parser and returns its stages in order.
func Stages(text string) ([]Stage, error) {
	res, err := parser.Parse(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse dockerfile: %w", err)
	}

	var stages []Stage
	for _, node := range res.AST.Children {
		if !strings.EqualFold(node.Value, "from") {
			continue
		}
		st := Stage{Index: len(stages), Line: node.StartLine}
		if node.Next != nil {
			st.BaseImage = node.Next.Value
			if as := node.Next.Next; as != nil && strings.EqualFold(as.Value, "as") && as.Next != nil {
				st.Name = as.Next.Value
			}
		}
		for _, flag := range node.Flags {
			if v, ok := strings.CutPrefix(flag, "--platform="); ok {
				st.Platform = v
			}
		}
		stages = append(stages, st)
	}

	if len(stages) == 0 {
		return nil, ErrNoStages
	}
	return stages, nil
}
