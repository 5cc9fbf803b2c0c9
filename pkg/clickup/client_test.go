package clickup

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
	c := NewClient("pk_token", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	return c, srv
}

func TestGetTask(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task/abc123", r.URL.Path)
		assert.Equal(t, "pk_token", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(Task{
			ID:     "abc123",
			Name:   "Acme outreach",
			Status: TaskStatus{Status: StatusReadyForAI},
			CustomFields: []CustomField{
				{Name: "client", Type: "text", Value: "Acme"},
				{Name: "client-leads-list", Type: "text", Value: "/uploads/acme/leads.csv"},
			},
		})
	})
	defer srv.Close()

	task, err := c.GetTask(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Acme outreach", task.Name)
	assert.Equal(t, StatusReadyForAI, task.Status.Status)
	assert.Equal(t, "Acme", task.CustomFieldValue("client"))
}

func TestUpdateTaskStatus(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/task/abc123", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, StatusAIProcessing, body["status"])

		fmt.Fprint(w, `{}`)
	})
	defer srv.Close()

	err := c.UpdateTaskStatus(context.Background(), "abc123", StatusAIProcessing)
	require.NoError(t, err)
}

func TestUpdateTaskStatus_Error(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"err":"Token invalid"}`)
	})
	defer srv.Close()

	err := c.UpdateTaskStatus(context.Background(), "abc123", StatusClientReview)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestListReadyTasks_WalksBoard(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/team":
			fmt.Fprint(w, `{"teams":[{"id":"t1"}]}`)
		case "/team/t1/space":
			fmt.Fprint(w, `{"spaces":[{"id":"s1"},{"id":"s2"}]}`)
		case "/space/s1/folder":
			fmt.Fprint(w, `{"folders":[{"id":"f1"}]}`)
		case "/space/s2/folder":
			// A broken space must not hide the rest of the board.
			w.WriteHeader(http.StatusInternalServerError)
		case "/folder/f1/list":
			fmt.Fprint(w, `{"lists":[{"id":"l1"}]}`)
		case "/list/l1/task":
			assert.Equal(t, StatusReadyForAI, r.URL.Query().Get("statuses[]"))
			fmt.Fprint(w, `{"tasks":[{"id":"task1","name":"Acme"},{"id":"task2","name":"Globex"}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})
	defer srv.Close()

	tasks, err := c.ListReadyTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "task1", tasks[0].ID)
	assert.Equal(t, "task2", tasks[1].ID)
}

func TestCustomFieldValue(t *testing.T) {
	task := Task{CustomFields: []CustomField{
		{Name: "CLIENT", Value: "Acme"},
		{Name: "slack", Value: ""},
		{Name: "client slack", Value: "#acme-outreach"},
		{Name: "count", Value: float64(3)},
	}}

	assert.Equal(t, "Acme", task.CustomFieldValue("client"), "matching is case-insensitive")
	assert.Equal(t, "#acme-outreach", task.CustomFieldValue("slack", "client slack"), "empty values are skipped")
	assert.Empty(t, task.CustomFieldValue("count"), "non-string values are ignored")
	assert.Empty(t, task.CustomFieldValue("missing"))
}
