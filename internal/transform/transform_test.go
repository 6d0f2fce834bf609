// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUserPrompt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		req      Request
		contains []string
		excludes []string
	}{
		{
			name:     "platform only",
			req:      Request{Content: "FROM python:3.11\n", Platform: "python-pypi"},
			contains: []string{"Build Platform: python-pypi", "FROM python:3.11"},
			excludes: []string{"buildAs block", "failed `docker buildx bake`"},
		},
		{
			name:     "build config wins over platform",
			req:      Request{Content: "FROM python:3.11", Platform: "python-pypi", BuildConfig: "pythonVersion '3.7.9'"},
			contains: []string{"buildAs block", "pythonVersion '3.7.9'"},
			excludes: []string{"Build Platform:"},
		},
		{
			name:     "prior error threaded through",
			req:      Request{Content: "FROM a\nFROM b\n", Platform: "java-gradle", PriorError: "ERROR: COPY failed: stat app.jar"},
			contains: []string{"failed `docker buildx bake`", "COPY failed: stat app.jar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := UserPrompt(tt.req)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("UserPrompt() missing %q\n%s", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("UserPrompt() should not contain %q", s)
				}
			}
		})
	}
}

func TestUserPrompt_TruncatesLongErrors(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", maxPriorErrorBytes) + "LAST LINE"
	got := UserPrompt(Request{Content: "FROM a", Platform: "p", PriorError: long})
	if !strings.Contains(got, "LAST LINE") {
		t.Error("truncation should keep the tail of the diagnostics")
	}
	if strings.Count(got, "x") > maxPriorErrorBytes {
		t.Error("diagnostics were not truncated")
	}
}

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"FROM a\nFROM b", "FROM a\nFROM b"},
		{"```dockerfile\nFROM a\nFROM b\n```", "FROM a\nFROM b"},
		{"  ```\nFROM a\n```  \n", "FROM a"},
		{"```\nFROM a", "FROM a"},
	}
	for _, tt := range tests {
		if got := StripCodeFence(tt.in); got != tt.want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// generateContentBody is the subset of the request body the tests inspect.
type generateContentBody struct {
	SystemInstruction *struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"systemInstruction"`
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

func TestGeminiClient_Transform(t *testing.T) {
	t.Parallel()

	bodies := make(chan generateContentBody, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1beta/models/gemini-2.5-flash-lite:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "secret" {
			t.Errorf("api key header = %q", r.Header.Get("x-goog-api-key"))
		}
		var body generateContentBody
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		bodies <- body
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"`+
			"```dockerfile\\nFROM golang:1.25 AS build\\n"+`"},{"text":"FROM alpine\n`+"```"+`"}]},"finishReason":"STOP"}]}`)
	}))
	defer srv.Close()

	c := NewGeminiClient(WithBaseURL(srv.URL+"/"), WithAPIKey("secret"), WithHTTPClient(srv.Client()))
	out, err := c.Transform(context.Background(), Request{Content: "FROM alpine\n", Platform: "go"})
	if err != nil {
		t.Fatalf("Transform() error: %v", err)
	}
	if out != "FROM golang:1.25 AS build\nFROM alpine" {
		t.Errorf("Transform() = %q", out)
	}

	gotBody := <-bodies
	if gotBody.SystemInstruction == nil || len(gotBody.SystemInstruction.Parts) == 0 ||
		gotBody.SystemInstruction.Parts[0].Text != SystemPrompt {
		t.Error("system instruction not sent")
	}
	if math.Abs(gotBody.GenerationConfig.Temperature-DefaultTemperature) > 1e-6 {
		t.Errorf("temperature = %v", gotBody.GenerationConfig.Temperature)
	}
	if len(gotBody.Contents) != 1 || len(gotBody.Contents[0].Parts) == 0 ||
		!strings.Contains(gotBody.Contents[0].Parts[0].Text, "FROM alpine") {
		t.Error("user prompt missing Dockerfile content")
	}
}

func TestGeminiClient_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "api error",
			status: http.StatusForbidden,
			body:   `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("error = %T, want *APIError", err)
				}
				if apiErr.StatusCode != 403 || apiErr.Message != "API key not valid" {
					t.Errorf("APIError = %+v", apiErr)
				}
			},
		},
		{
			name:   "no candidates",
			status: http.StatusOK,
			body:   `{"candidates":[]}`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrEmptyResponse) {
					t.Errorf("error = %v, want ErrEmptyResponse", err)
				}
			},
		},
		{
			name:   "blank text",
			status: http.StatusOK,
			body:   `{"candidates":[{"content":{"parts":[{"text":"` + "```\\n```" + `"}]}}]}`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrEmptyResponse) {
					t.Errorf("error = %v, want ErrEmptyResponse", err)
				}
			},
		},
		{
			name:   "blocked prompt",
			status: http.StatusOK,
			body:   `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			check: func(t *testing.T, err error) {
				if err == nil || !strings.Contains(err.Error(), "SAFETY") {
					t.Errorf("error = %v, want block reason", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewGeminiClient(WithBaseURL(srv.URL), WithAPIKey("k"))
			_, err := c.Transform(context.Background(), Request{Content: "FROM a", Platform: "p"})
			tt.check(t, err)
		})
	}
}

func TestGeminiClient_MissingKey(t *testing.T) {
	t.Parallel()

	c := NewGeminiClient(WithBaseURL("http://127.0.0.1:1"))
	if _, err := c.Transform(context.Background(), Request{Content: "FROM a"}); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("error = %v, want ErrMissingAPIKey", err)
	}
}

func TestFunc(t *testing.T) {
	t.Parallel()

	var tr Transformer = Func(func(_ context.Context, req Request) (string, error) {
		return req.Content + "FROM scratch\n", nil
	})
	out, err := tr.Transform(context.Background(), Request{Content: "FROM a\n"})
	if err != nil || out != "FROM a\nFROM scratch\n" {
		t.Errorf("Func.Transform() = (%q, %v)", out, err)
	}
}

func TestTail_KeepsRunesWhole(t *testing.T) {
	t.Parallel()

	got := tail("ab€cd", 4)
	if got != "...cd" {
		t.Errorf("tail() = %q, want %q", got, "...cd")
	}
	if got := tail("short", 10); got != "short" {
		t.Errorf("tail(short) = %q", got)
	}
}
