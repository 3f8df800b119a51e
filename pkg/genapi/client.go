package genapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
)

type ClientOptions struct {
	BaseURL string
	ApiKey  string
	Model   string
	Headers map[string]string

	transport *http.Client
}

type Client struct {
	opts *ClientOptions
}

func NewClient(opts *ClientOptions) *Client {
	if opts.transport == nil {
		opts.transport = http.DefaultClient
	}

	return &Client{
		opts: opts,
	}
}

// Generate runs one generation call and returns the decoded bytes of the
// first returned image.
func (c *Client) Generate(ctx context.Context, prompt string, inputImages [][]byte) ([]byte, error) {
	genRequest := &GenerateRequest{
		Model:       c.opts.Model,
		Prompt:      prompt,
		OutputCount: 1,
	}
	for _, img := range inputImages {
		genRequest.ImagesB64 = append(genRequest.ImagesB64, base64.StdEncoding.EncodeToString(img))
	}

	payload, err := sonic.Marshal(genRequest)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/images/generations", bytes.NewBuffer(payload))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.opts.ApiKey)
	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}

	res, err := c.opts.transport.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	var genResponse *GenerateResponse
	if res.StatusCode != http.StatusOK {
		// Error bodies are not always JSON (proxies return HTML pages).
		if err := sonic.Unmarshal(body, &genResponse); err == nil && genResponse != nil && genResponse.Error != nil {
			return nil, errors.New(genResponse.Error.Message)
		}
		return nil, fmt.Errorf("image generation failed with status %d", res.StatusCode)
	}

	if err := sonic.Unmarshal(body, &genResponse); err != nil {
		return nil, err
	}

	if genResponse == nil {
		return nil, errors.New("image generation returned an empty response")
	}

	if genResponse.Error != nil {
		return nil, errors.New(genResponse.Error.Message)
	}

	if len(genResponse.Data) == 0 {
		return nil, errors.New("image generation returned no images")
	}

	return base64.StdEncoding.DecodeString(genResponse.Data[0].B64JSON)
}
