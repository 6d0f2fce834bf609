// SPDX-License-Identifier: MPL-2.0

package manifest

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// appTarget is the bake target the validator overrides the platform of.
const appTarget = "app"

var dockerfileAttrPattern = regexp.MustCompile(`(?i)dockerfile\s*=\s*["']([^"']+)["']`)

var (
	bakeFileSchema = &hcl.BodySchema{
		Blocks: []hcl.BlockHeaderSchema{
			{Type: "target", LabelNames: []string{"name"}},
			{Type: "variable", LabelNames: []string{"name"}},
			{Type: "group", LabelNames: []string{"name"}},
		},
	}
	targetSchema = &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "dockerfile"},
			{Name: "context"},
		},
	}
	variableSchema = &hcl.BodySchema{
		Attributes: []hcl.AttributeSchema{
			{Name: "default"},
		},
	}
)

type (
	// BakeTarget is a target block of a bake file.
	BakeTarget struct {
		Name       string
		Dockerfile string
		Context    string
	}

	// BakeFile is the subset of a Docker bake file stagecraft reads.
	BakeFile struct {
		Targets []BakeTarget
	}
)

// ParseBake parses bake file data. filename selects the syntax: names ending in
// .json are read as JSON, anything else as HCL. Variable defaults are available
// to target attributes; attributes that still cannot be evaluated are skipped.
func ParseBake(filename string, data []byte) (*BakeFile, error) {
	parser := hclparse.NewParser()

	var (
		file  *hcl.File
		diags hcl.Diagnostics
	)
	if strings.EqualFold(path.Ext(filename), ".json") {
		file, diags = parser.ParseJSON(data, filename)
	} else {
		file, diags = parser.ParseHCL(data, filename)
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse bake file %s: %w", filename, diags)
	}

	content, _, diags := file.Body.PartialContent(bakeFileSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode bake file %s: %w", filename, diags)
	}

	evalCtx := &hcl.EvalContext{Variables: variableDefaults(content.Blocks.OfType("variable"))}

	bf := &BakeFile{}
	for _, block := range content.Blocks.OfType("target") {
		attrs, _, _ := block.Body.PartialContent(targetSchema)
		t := BakeTarget{Name: block.Labels[0]}
		if attr, ok := attrs.Attributes["dockerfile"]; ok {
			t.Dockerfile = stringAttr(attr, evalCtx)
		}
		if attr, ok := attrs.Attributes["context"]; ok {
			t.Context = stringAttr(attr, evalCtx)
		}
		bf.Targets = append(bf.Targets, t)
	}
	return bf, nil
}

// Dockerfile returns the dockerfile of the "app" target, or of the first target
// that names one.
func (b *BakeFile) Dockerfile() (target, dockerfile string, ok bool) {
	for _, t := range b.Targets {
		if t.Name == appTarget && t.Dockerfile != "" {
			return t.Name, t.Dockerfile, true
		}
	}
	for _, t := range b.Targets {
		if t.Dockerfile != "" {
			return t.Name, t.Dockerfile, true
		}
	}
	return "", "", false
}

// DockerfileFromBake returns the dockerfile named by bake file data, falling
// back to a plain text search when the file cannot be parsed.
func DockerfileFromBake(filename string, data []byte) (string, bool) {
	if bf, err := ParseBake(filename, data); err == nil {
		if _, df, ok := bf.Dockerfile(); ok {
			return df, true
		}
	}
	if m := dockerfileAttrPattern.FindSubmatch(data); m != nil {
		return string(m[1]), true
	}
	return "", false
}

func variableDefaults(blocks hcl.Blocks) map[string]cty.Value {
	vars := make(map[string]cty.Value, len(blocks))
	for _, block := range blocks {
		attrs, _, _ := block.Body.PartialContent(variableSchema)
		val := cty.StringVal("")
		if attr, ok := attrs.Attributes["default"]; ok {
			if v, diags := attr.Expr.Value(nil); !diags.HasErrors() {
				val = v
			}
		}
		vars[block.Labels[0]] = val
	}
	return vars
}

func stringAttr(attr *hcl.Attribute, evalCtx *hcl.EvalContext) string {
	v, diags := attr.Expr.Value(evalCtx)
	if diags.HasErrors() || v.IsNull() || !v.IsKnown() || v.Type() != cty.String {
		return ""
	}
	return v.AsString()
}
