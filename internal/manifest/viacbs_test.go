// SPDX-License-Identifier: MPL-2.0

package manifest

import "testing"

const sampleManifest = `viaCBS {
    dockerBakeFile './docker/docker-bake.hcl'
    buildAs('python-pypi') {
        pythonVersion '3.7.9'
        tests {
            command 'pytest'
        }
    }
}
`

func TestParse(t *testing.T) {
	t.Parallel()

	m := Parse(sampleManifest)
	if m.BakeFile != "./docker/docker-bake.hcl" {
		t.Errorf("BakeFile = %q", m.BakeFile)
	}
	if m.Platform != "python-pypi" {
		t.Errorf("Platform = %q", m.Platform)
	}
	want := "pythonVersion '3.7.9'\n        tests {\n            command 'pytest'\n        }"
	if m.BuildConfig != want {
		t.Errorf("BuildConfig = %q, want %q", m.BuildConfig, want)
	}
	if !m.HasDockerSpec {
		t.Error("HasDockerSpec should be true")
	}
}

func TestParse_Variants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    Manifest
	}{
		{
			name:    "double quotes and spacing",
			content: "dockerbakefile \"bake.hcl\"\nbuildAs ( \"java-gradle\" ){ jdk '17' }\n",
			want:    Manifest{BakeFile: "bake.hcl", Platform: "java-gradle", BuildConfig: "jdk '17'", HasDockerSpec: true},
		},
		{
			name:    "unterminated block keeps platform",
			content: "buildAs('node-npm') {\n  node '20'\n",
			want:    Manifest{Platform: "node-npm"},
		},
		{
			name:    "docker mention only",
			content: "publish to DOCKER hub\n",
			want:    Manifest{HasDockerSpec: true},
		},
		{
			name:    "mixed case docker is not a keyword",
			content: "uses dOcKeR\n",
			want:    Manifest{},
		},
		{
			name:    "empty",
			content: "",
			want:    Manifest{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Parse(tt.content); got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
