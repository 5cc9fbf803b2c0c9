package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	n := NewNotifier(srv.URL)
	err := n.Send(context.Background(), Message{
		Text: "drafts ready",
		Attachments: []Attachment{
			{Fields: []Field{{Title: "Client", Value: "Acme", Short: true}}},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "drafts ready", got.Text)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "Acme", got.Attachments[0].Fields[0].Value)
}

func TestSend_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewNotifier(srv.URL).Send(context.Background(), Message{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestSend_NoopWithoutURL(t *testing.T) {
	err := NewNotifier("").Send(context.Background(), Message{Text: "dropped"})
	assert.NoError(t, err)
}
