package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/comigor/meditranslate-go/internal/logger"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini calls the Google AI Studio generateContent API.
type Gemini struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGemini constructs a client. An empty baseURL selects the public endpoint.
func NewGemini(apiKey, baseURL string, httpClient *http.Client) (*Gemini, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Gemini{apiKey: apiKey, baseURL: baseURL, httpClient: httpClient}, nil
}

// Generate sends the prompt, plus the recording inline when AudioPath is set,
// and returns the concatenated text of the first candidate.
func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	parts := []part{{Text: req.Prompt}}
	if req.AudioPath != "" {
		data, err := os.ReadFile(req.AudioPath)
		if err != nil {
			return "", fmt.Errorf("read audio: %w", err)
		}
		parts = append(parts, part{InlineData: &blob{
			MimeType: audioMimeType(req.AudioPath),
			Data:     base64.StdEncoding.EncodeToString(data),
		}})
	}

	body := generateRequest{Contents: []content{{Role: "user", Parts: parts}}}
	var resp generateResponse
	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, normalizeModel(req.Model))
	if err := g.do(ctx, http.MethodPost, endpoint, body, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini response has no text (finish reason %q)", resp.Candidates[0].FinishReason)
	}
	return sb.String(), nil
}

// ListModels returns the models that support generateContent.
func (g *Gemini) ListModels(ctx context.Context) ([]string, error) {
	var out []string
	pageToken := ""
	for {
		endpoint := g.baseURL + "/models?pageSize=1000"
		if pageToken != "" {
			endpoint += "&pageToken=" + url.QueryEscape(pageToken)
		}
		var resp listModelsResponse
		if err := g.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
			return nil, err
		}
		for _, m := range resp.Models {
			for _, method := range m.SupportedGenerationMethods {
				if method == "generateContent" {
					out = append(out, m.Name)
					break
				}
			}
		}
		if resp.NextPageToken == "" {
			return out, nil
		}
		pageToken = resp.NextPageToken
	}
}

func (g *Gemini) do(ctx context.Context, method, endpoint string, payload any, out any) error {
	var reader io.Reader
	if payload != nil {
		body, err := sonic.Marshal(payload)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", g.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
		var errResp errorResponse
		if sonic.Unmarshal(raw, &errResp) == nil {
			apiErr.Message = errResp.Error.Message
		}
		logger.FromContext(ctx).Warn("gemini api error", "status", resp.StatusCode, "message", apiErr.Message)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return sonic.Unmarshal(raw, out)
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	return strings.TrimPrefix(model, "models/")
}

func audioMimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mp3"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".aac", ".m4a":
		return "audio/aac"
	case ".webm":
		return "audio/webm"
	default:
		return "audio/wav"
	}
}

type blob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string `json:"text,omitempty"`
	InlineData *blob  `json:"inlineData,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

type listModelsResponse struct {
	Models []struct {
		Name                       string   `json:"name"`
		SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
	} `json:"models"`
	NextPageToken string `json:"nextPageToken"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}
