package genapi

// GenerateRequest is the payload for the image generation endpoint. Input
// images are carried inline as base64.
type GenerateRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	ImagesB64   []string `json:"images_b64,omitempty"`
	Size        string   `json:"size,omitempty"`
	OutputCount int      `json:"n,omitempty"`
}

type GeneratedImage struct {
	B64JSON string `json:"b64_json"`
}

type GenerateResponse struct {
	Created int64            `json:"created"`
	Data    []GeneratedImage `json:"data"`
	Error   *APIError        `json:"error,omitempty"`
}

type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}
