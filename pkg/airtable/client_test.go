package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	c := NewClient("key", "appBase", "Client-Leads",
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRateLimit(0),
	)
	return c, srv
}

func TestCreateRecords(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/appBase/Client-Leads", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var body struct {
			Records []struct {
				Fields map[string]any `json:"fields"`
			} `json:"records"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Records, 2)

		out := map[string]any{"records": []Record{
			{ID: "rec1", Fields: body.Records[0].Fields},
			{ID: "rec2", Fields: body.Records[1].Fields},
		}}
		json.NewEncoder(w).Encode(out)
	})
	defer srv.Close()

	recs, err := c.CreateRecords(context.Background(), []map[string]any{
		{"full name": "A"},
		{"full name": "B"},
	})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "rec1", recs[0].ID)
	assert.Equal(t, "A", recs[0].Fields["full name"])
}

func TestCreateRecords_RejectsOversizedBatch(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	defer srv.Close()

	oversized := make([]map[string]any, MaxBatchSize+1)
	_, err := c.CreateRecords(context.Background(), oversized)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 10")
}

func TestUpdateRecords(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)

		var body struct {
			Records []RecordUpdate `json:"records"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		recs := make([]Record, len(body.Records))
		for i, u := range body.Records {
			recs[i] = Record{ID: u.ID, Fields: u.Fields}
		}
		json.NewEncoder(w).Encode(map[string]any{"records": recs})
	})
	defer srv.Close()

	recs, err := c.UpdateRecords(context.Background(), []RecordUpdate{
		{ID: "rec1", Fields: map[string]any{"status": "processed"}},
	})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "processed", recs[0].Fields["status"])
}

func TestQueryRecords_FollowsPagination(t *testing.T) {
	page := 0
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `{status} = "new"`, r.URL.Query().Get("filterByFormula"))

		page++
		switch page {
		case 1:
			assert.Empty(t, r.URL.Query().Get("offset"))
			json.NewEncoder(w).Encode(map[string]any{
				"records": []Record{{ID: "rec1"}, {ID: "rec2"}},
				"offset":  "next",
			})
		default:
			assert.Equal(t, "next", r.URL.Query().Get("offset"))
			json.NewEncoder(w).Encode(map[string]any{
				"records": []Record{{ID: "rec3"}},
			})
		}
	})
	defer srv.Close()

	recs, err := c.QueryRecords(context.Background(), `{status} = "new"`)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, 2, page)
	assert.Equal(t, "rec3", recs[2].ID)
}

func TestGetRecord(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appBase/Client-Leads/rec42", r.URL.Path)
		json.NewEncoder(w).Encode(Record{ID: "rec42", Fields: map[string]any{"Title": "CTO"}})
	})
	defer srv.Close()

	rec, err := c.GetRecord(context.Background(), "rec42")
	require.NoError(t, err)
	assert.Equal(t, "rec42", rec.ID)
	assert.Equal(t, "CTO", rec.Fields["Title"])
}

func TestGetRecord_NotFound(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"type":"NOT_FOUND"}}`)
	})
	defer srv.Close()

	_, err := c.GetRecord(context.Background(), "recMissing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestDo_SurfacesUnexpectedStatus(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error":"INVALID_VALUE_FOR_COLUMN"}`)
	})
	defer srv.Close()

	_, err := c.UpdateRecords(context.Background(), []RecordUpdate{{ID: "rec1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}
