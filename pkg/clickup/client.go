// Package clickup wraps the ClickUp API for task lookup, status updates, and
// board traversal.
package clickup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.clickup.com/api/v2"

// Board statuses driven by the outreach workflow.
const (
	StatusReadyForAI     = "READY FOR AI"
	StatusAIProcessing   = "AI PROCESSING"
	StatusClientReview   = "CLIENT REVIEW"
	StatusReviewManually = "REVIEW MANUALLY"
)

// Task is a tracker task with its custom fields.
type Task struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Status       TaskStatus    `json:"status"`
	URL          string        `json:"url"`
	CustomFields []CustomField `json:"custom_fields"`
}

// TaskStatus is the nested status object ClickUp returns.
type TaskStatus struct {
	Status string `json:"status"`
}

// CustomField is one task custom field.
type CustomField struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// CustomFieldValue returns the first non-empty string value among the given
// field names (case-insensitive), or "" when none is set.
func (t Task) CustomFieldValue(names ...string) string {
	for _, f := range t.CustomFields {
		for _, name := range names {
			if strings.EqualFold(f.Name, name) {
				if s, ok := f.Value.(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// Client defines the ClickUp operations used by the workflow.
type Client interface {
	GetTask(ctx context.Context, taskID string) (*Task, error)
	UpdateTaskStatus(ctx context.Context, taskID, status string) error
	ListReadyTasks(ctx context.Context) ([]Task, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a ClickUp client. Calls are throttled to stay under the
// free-plan limit of 100 requests per minute.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(1.5), 3),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetTask fetches one task including its custom fields.
func (c *httpClient) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	if err := c.do(ctx, http.MethodGet, "/task/"+url.PathEscape(taskID), nil, &task); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("clickup: get task %s", taskID))
	}
	return &task, nil
}

// UpdateTaskStatus sets the task's board status.
func (c *httpClient) UpdateTaskStatus(ctx context.Context, taskID, status string) error {
	body := map[string]string{"status": status}
	if err := c.do(ctx, http.MethodPut, "/task/"+url.PathEscape(taskID), body, nil); err != nil {
		return eris.Wrap(err, fmt.Sprintf("clickup: update task %s to %q", taskID, status))
	}
	return nil
}

// ListReadyTasks walks every team, space, folder, and list visible to the
// token and collects tasks with status "READY FOR AI". Traversal failures for
// one container are logged and skipped so a single broken space does not hide
// the rest of the board.
func (c *httpClient) ListReadyTasks(ctx context.Context) ([]Task, error) {
	var teams struct {
		Teams []struct {
			ID string `json:"id"`
		} `json:"teams"`
	}
	if err := c.do(ctx, http.MethodGet, "/team", nil, &teams); err != nil {
		return nil, eris.Wrap(err, "clickup: list teams")
	}

	var all []Task
	for _, team := range teams.Teams {
		var spaces struct {
			Spaces []struct {
				ID string `json:"id"`
			} `json:"spaces"`
		}
		if err := c.do(ctx, http.MethodGet, "/team/"+team.ID+"/space", nil, &spaces); err != nil {
			zap.L().Warn("clickup: list spaces failed", zap.String("team", team.ID), zap.Error(err))
			continue
		}

		for _, space := range spaces.Spaces {
			var folders struct {
				Folders []struct {
					ID string `json:"id"`
				} `json:"folders"`
			}
			if err := c.do(ctx, http.MethodGet, "/space/"+space.ID+"/folder", nil, &folders); err != nil {
				zap.L().Warn("clickup: list folders failed", zap.String("space", space.ID), zap.Error(err))
				continue
			}

			for _, folder := range folders.Folders {
				var lists struct {
					Lists []struct {
						ID string `json:"id"`
					} `json:"lists"`
				}
				if err := c.do(ctx, http.MethodGet, "/folder/"+folder.ID+"/list", nil, &lists); err != nil {
					zap.L().Warn("clickup: list lists failed", zap.String("folder", folder.ID), zap.Error(err))
					continue
				}

				for _, list := range lists.Lists {
					var tasks struct {
						Tasks []Task `json:"tasks"`
					}
					path := "/list/" + list.ID + "/task?statuses[]=" + url.QueryEscape(StatusReadyForAI)
					if err := c.do(ctx, http.MethodGet, path, nil, &tasks); err != nil {
						zap.L().Warn("clickup: list tasks failed", zap.String("list", list.ID), zap.Error(err))
						continue
					}
					all = append(all, tasks.Tasks...)
				}
			}
		}
	}

	return all, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, body any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "clickup: rate limiter")
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return eris.Wrap(err, "clickup: marshal request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return eris.Wrap(err, "clickup: create request")
	}
	req.Header.Set("Authorization", c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "clickup: send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "clickup: read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return eris.Errorf("clickup: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return eris.Wrap(err, "clickup: unmarshal response")
		}
	}
	return nil
}
