package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securegist/securegist/pkg/securegist"
	"github.com/securegist/securegist/pkg/securegist/api"
	"github.com/securegist/securegist/pkg/securegist/repo/memory"
	memorystorage "github.com/securegist/securegist/pkg/securegist/storage/memory"
)

func setupServer(t *testing.T) *httptest.Server {
	t.Helper()

	svc, err := securegist.New(
		securegist.WithRepository(memory.New()),
		securegist.WithBlobStore(memorystorage.New()),
	)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/api/gists", api.NewGistHandler(svc).Routes())

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return server
}

func createGist(t *testing.T, server *httptest.Server, body map[string]interface{}) (string, *http.Response) {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(server.URL+"/api/gists", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)

	if resp.StatusCode != http.StatusCreated {
		return "", resp
	}

	var created struct {
		GistID       string `json:"gist_id"`
		UploadParams struct {
			URL    string            `json:"url"`
			Fields map[string]string `json:"fields"`
		} `json:"upload_params"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	require.NotEmpty(t, created.GistID)
	require.NotEmpty(t, created.UploadParams.URL)

	return created.GistID, resp
}

func doRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	return resp
}

func TestCreateGist(t *testing.T) {
	server := setupServer(t)

	t.Run("returns 201 with upload grant", func(t *testing.T) {
		id, resp := createGist(t, server, map[string]interface{}{
			"gist_metadata": map[string]interface{}{"iv": "YWJjZGVm"},
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.NotEmpty(t, id)
	})

	t.Run("accepts expiration and max reads", func(t *testing.T) {
		_, resp := createGist(t, server, map[string]interface{}{
			"gist_metadata":   map[string]interface{}{},
			"expiration_date": "2031-06-01T12:00:00Z",
			"max_reads":       5,
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("rejects missing metadata", func(t *testing.T) {
		_, resp := createGist(t, server, map[string]interface{}{
			"max_reads": 5,
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_error", decodeErrorCode(t, resp))
	})

	t.Run("rejects unparseable expiration", func(t *testing.T) {
		_, resp := createGist(t, server, map[string]interface{}{
			"gist_metadata":   map[string]interface{}{},
			"expiration_date": "tomorrow at noon",
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "validation_error", decodeErrorCode(t, resp))
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		resp, err := http.Post(server.URL+"/api/gists", "application/json", bytes.NewReader([]byte("{not json")))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestReadGist(t *testing.T) {
	server := setupServer(t)

	t.Run("returns gist with download url", func(t *testing.T) {
		metadata := map[string]interface{}{"iv": "dGVzdA==", "alg": "AES-GCM"}
		id, _ := createGist(t, server, map[string]interface{}{
			"gist_metadata": metadata,
			"max_reads":     5,
		})

		resp := doRequest(t, http.MethodGet, server.URL+"/api/gists/"+id)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got struct {
			GistID      string                 `json:"gist_id"`
			DownloadURL string                 `json:"download_url"`
			Metadata    map[string]interface{} `json:"gist_metadata"`
			ReadCount   int                    `json:"read_count"`
			MaxReads    int                    `json:"max_reads"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, id, got.GistID)
		assert.NotEmpty(t, got.DownloadURL)
		assert.Equal(t, metadata, got.Metadata)
		assert.Equal(t, 1, got.ReadCount)
		assert.Equal(t, 5, got.MaxReads)
	})

	t.Run("serializes expiration as RFC 3339 UTC", func(t *testing.T) {
		id, _ := createGist(t, server, map[string]interface{}{
			"gist_metadata":   map[string]interface{}{},
			"expiration_date": "2031-06-01T12:00:00+05:00",
		})

		resp := doRequest(t, http.MethodGet, server.URL+"/api/gists/"+id)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got struct {
			ExpirationDate string `json:"expiration_date"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "2031-06-01T07:00:00Z", got.ExpirationDate)
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, server.URL+"/api/gists/b1c2a3d4-0000-0000-0000-000000000000")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "not_found", decodeErrorCode(t, resp))
	})

	t.Run("malformed id returns 404", func(t *testing.T) {
		resp := doRequest(t, http.MethodGet, server.URL+"/api/gists/not-a-uuid")
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("exhausted gist returns 410 then 404", func(t *testing.T) {
		id, _ := createGist(t, server, map[string]interface{}{
			"gist_metadata": map[string]interface{}{},
			"max_reads":     2,
		})

		for i := 0; i < 2; i++ {
			resp := doRequest(t, http.MethodGet, server.URL+"/api/gists/"+id)
			resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)
		}

		resp := doRequest(t, http.MethodGet, server.URL+"/api/gists/"+id)
		assert.Equal(t, http.StatusGone, resp.StatusCode)
		var body struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		assert.Equal(t, "gone", body.Error.Code)
		assert.Equal(t, securegist.GoneReasonExhausted, body.Error.Message)

		resp = doRequest(t, http.MethodGet, server.URL+"/api/gists/"+id)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("expired gist returns 410", func(t *testing.T) {
		past := time.Now().UTC().Add(-time.Minute).Format(time.RFC3339)
		id, _ := createGist(t, server, map[string]interface{}{
			"gist_metadata":   map[string]interface{}{},
			"expiration_date": past,
		})

		resp := doRequest(t, http.MethodGet, server.URL+"/api/gists/"+id)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusGone, resp.StatusCode)
	})
}

func TestDeleteGist(t *testing.T) {
	server := setupServer(t)

	t.Run("returns 204 and destroys the gist", func(t *testing.T) {
		id, _ := createGist(t, server, map[string]interface{}{
			"gist_metadata": map[string]interface{}{},
		})

		resp := doRequest(t, http.MethodDelete, server.URL+"/api/gists/"+id)
		resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = doRequest(t, http.MethodGet, server.URL+"/api/gists/"+id)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("double delete returns 404", func(t *testing.T) {
		id, _ := createGist(t, server, map[string]interface{}{
			"gist_metadata": map[string]interface{}{},
		})

		resp := doRequest(t, http.MethodDelete, server.URL+"/api/gists/"+id)
		resp.Body.Close()
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = doRequest(t, http.MethodDelete, server.URL+"/api/gists/"+id)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("unknown id returns 404", func(t *testing.T) {
		resp := doRequest(t, http.MethodDelete, server.URL+fmt.Sprintf("/api/gists/%s", "b1c2a3d4-0000-0000-0000-000000000000"))
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func decodeErrorCode(t *testing.T, resp *http.Response) string {
	t.Helper()

	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error.Code
}
