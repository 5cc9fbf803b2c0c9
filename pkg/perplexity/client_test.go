package perplexity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient("test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	return c, srv
}

func TestComplete_Success(t *testing.T) {
	var gotReq ChatCompletionRequest
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(ChatCompletionResponse{
			ID: "cmpl-1",
			Choices: []Choice{
				{Message: Message{Role: "assistant", Content: "  a crisp opener  \n"}},
			},
		})
	})
	defer srv.Close()

	text, err := c.Complete(context.Background(), "write an opener", "you are a copywriter")
	require.NoError(t, err)
	assert.Equal(t, "a crisp opener", text, "Complete trims whitespace")

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
	assert.Equal(t, "sonar", gotReq.Model)
	require.NotNil(t, gotReq.MaxTokens)
	assert.Equal(t, 100, *gotReq.MaxTokens)
	require.NotNil(t, gotReq.Temperature)
	assert.InDelta(t, 0.7, *gotReq.Temperature, 0.001)
}

func TestComplete_NoSystemMessage(t *testing.T) {
	var gotReq ChatCompletionRequest
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(ChatCompletionResponse{
			Choices: []Choice{{Message: Message{Content: "text"}}},
		})
	})
	defer srv.Close()

	_, err := c.Complete(context.Background(), "prompt only", "")
	require.NoError(t, err)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestChatCompletion_HTTPError(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	})
	defer srv.Close()

	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{
		Messages: []Message{{Role: "user", Content: "x"}},
	})
	require.Error(t, err)

	var he *HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusTooManyRequests, he.StatusCode)
	assert.Contains(t, he.Body, "rate limited")
	assert.Contains(t, he.Error(), "429")
}

func TestChatCompletion_EmptyBody(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestChatCompletion_MalformedBody(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})
	defer srv.Close()

	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestChatCompletion_NoChoices(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatCompletionResponse{ID: "cmpl-2"})
	})
	defer srv.Close()

	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{})
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestChatCompletion_ModelOverride(t *testing.T) {
	var gotReq ChatCompletionRequest
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(ChatCompletionResponse{
			Choices: []Choice{{Message: Message{Content: "ok"}}},
		})
	})
	defer srv.Close()

	_, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "sonar-pro"})
	require.NoError(t, err)
	assert.Equal(t, "sonar-pro", gotReq.Model)
}
