package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
)

// Client implements Backend against a running llama-server instance.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		// No request timeout: a probe blocks for as long as the model
		// takes, and a stall is fatal to the run anyway.
		http: &http.Client{Timeout: 0},
	}
}

type tokenizeRequest struct {
	Content    string `json:"content"`
	AddSpecial bool   `json:"add_special"`
}

type tokenizeResponse struct {
	Tokens []int `json:"tokens"`
}

func (c *Client) Tokenize(ctx context.Context, text string) (int, error) {
	var resp tokenizeResponse
	if err := c.post(ctx, "/tokenize", &tokenizeRequest{Content: text}, &resp); err != nil {
		return 0, fmt.Errorf("tokenize %q: %w", text, err)
	}
	if len(resp.Tokens) == 0 {
		return 0, fmt.Errorf("tokenize %q: no tokens returned", text)
	}
	return resp.Tokens[0], nil
}

type completionRequest struct {
	Prompt      string       `json:"prompt"`
	NPredict    int          `json:"n_predict"`
	Temperature float64      `json:"temperature"`
	NProbs      int          `json:"n_probs,omitempty"`
	TopK        int          `json:"top_k,omitempty"`
	LogitBias   [][2]float64 `json:"logit_bias,omitempty"`
}

type completionResponse struct {
	Content                 string `json:"content"`
	CompletionProbabilities []struct {
		Content string `json:"content"`
		Probs   []struct {
			TokStr string  `json:"tok_str"`
			Prob   float64 `json:"prob"`
		} `json:"probs"`
	} `json:"completion_probabilities"`
}

func (c *Client) Complete(ctx context.Context, req *CompletionRequest) (*Completion, error) {
	wire := &completionRequest{
		Prompt:      req.Prompt,
		NPredict:    1,
		Temperature: 0,
		NProbs:      req.NProbs,
		TopK:        req.NProbs,
	}
	for id, bias := range req.LogitBias {
		wire.LogitBias = append(wire.LogitBias, [2]float64{float64(id), bias})
	}

	var resp completionResponse
	if err := c.post(ctx, "/completion", wire, &resp); err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	out := &Completion{Text: resp.Content, Candidates: map[string]float64{}}
	if len(resp.CompletionProbabilities) > 0 {
		for _, cand := range resp.CompletionProbabilities[0].Probs {
			if cand.Prob > 0 {
				out.Candidates[cand.TokStr] = math.Log(cand.Prob)
			}
		}
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, data)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}
