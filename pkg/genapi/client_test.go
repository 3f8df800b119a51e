package genapi

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDecodesFirstImage(t *testing.T) {
	var captured GenerateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&captured))

		resp := GenerateResponse{
			Created: 1,
			Data: []GeneratedImage{
				{B64JSON: base64.StdEncoding.EncodeToString([]byte("png-bytes"))},
			},
		}
		body, _ := sonic.Marshal(resp)
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	defer srv.Close()

	client := NewClient(&ClientOptions{
		BaseURL: srv.URL,
		ApiKey:  "test-key",
		Model:   "cosify-image-1",
	})

	out, err := client.Generate(context.Background(), "portrait", [][]byte{[]byte("input")})
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), out)

	assert.Equal(t, "cosify-image-1", captured.Model)
	assert.Equal(t, "portrait", captured.Prompt)
	require.Len(t, captured.ImagesB64, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("input")), captured.ImagesB64[0])
}

func TestGenerateSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"prompt rejected","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client := NewClient(&ClientOptions{BaseURL: srv.URL, ApiKey: "k", Model: "m"})

	_, err := client.Generate(context.Background(), "bad prompt", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt rejected")
}

func TestGenerateEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"created":1,"data":[]}`))
	}))
	defer srv.Close()

	client := NewClient(&ClientOptions{BaseURL: srv.URL, ApiKey: "k", Model: "m"})

	_, err := client.Generate(context.Background(), "prompt", nil)
	require.Error(t, err)
}

func TestGenerateNonJSONErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html><body>502 Bad Gateway</body></html>"))
	}))
	defer srv.Close()

	client := NewClient(&ClientOptions{BaseURL: srv.URL, ApiKey: "k", Model: "m"})

	_, err := client.Generate(context.Background(), "portrait", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestGenerateNullBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("null"))
	}))
	defer srv.Close()

	client := NewClient(&ClientOptions{BaseURL: srv.URL, ApiKey: "k", Model: "m"})

	_, err := client.Generate(context.Background(), "portrait", nil)
	require.Error(t, err)
}
