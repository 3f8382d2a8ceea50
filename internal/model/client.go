// Package model is the HTTP client for the external model runner: the
// process that owns the tokenizer, the pretrained weights, the training
// loop, and generation. Parley only speaks this interface and never
// inspects the runner's internals.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

type tokenizeRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
}

type tokenizeResponse struct {
	TokenIDs      []int `json:"token_ids"`
	AttentionMask []int `json:"attention_mask"`
}

type generateRequest struct {
	TokenIDs    []int   `json:"token_ids"`
	MaxLength   int     `json:"max_length"`
	Temperature float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	TokenIDs []int `json:"token_ids"`
}

type decodeRequest struct {
	TokenIDs []int `json:"token_ids"`
}

type decodeResponse struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Tokenize encodes text into token ids and an attention mask, truncating
// or padding to maxLength on the runner side.
func (c *Client) Tokenize(ctx context.Context, text string, maxLength int) ([]int, []int, error) {
	var resp tokenizeResponse
	err := c.post(ctx, "/v1/tokenize", tokenizeRequest{Text: text, MaxLength: maxLength}, &resp)
	if err != nil {
		return nil, nil, fmt.Errorf("tokenize: %w", err)
	}
	return resp.TokenIDs, resp.AttentionMask, nil
}

// Generate continues a token sequence up to maxLength tokens.
func (c *Client) Generate(ctx context.Context, tokenIDs []int, maxLength int, temperature float64) ([]int, error) {
	var resp generateResponse
	err := c.post(ctx, "/v1/generate", generateRequest{
		TokenIDs:    tokenIDs,
		MaxLength:   maxLength,
		Temperature: temperature,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	return resp.TokenIDs, nil
}

// Decode turns token ids back into text.
func (c *Client) Decode(ctx context.Context, tokenIDs []int) (string, error) {
	var resp decodeResponse
	err := c.post(ctx, "/v1/decode", decodeRequest{TokenIDs: tokenIDs}, &resp)
	if err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	return resp.Text, nil
}

// Chat is the tokenize → generate → decode round-trip: the pure
// user-text-in, response-text-out function the demo endpoint binds.
func (c *Client) Chat(ctx context.Context, text string, maxLength int, temperature float64) (string, error) {
	ids, _, err := c.Tokenize(ctx, text, maxLength)
	if err != nil {
		return "", err
	}
	out, err := c.Generate(ctx, ids, maxLength, temperature)
	if err != nil {
		return "", err
	}
	return c.Decode(ctx, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return fmt.Errorf("runner error %d: %s — %s", resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
		}
		return fmt.Errorf("runner error %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
