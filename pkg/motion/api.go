// Package motion provides thin per-resource listing operations over the
// resilient client core. It builds requests, walks pagination, and decodes
// items through the field normalizers. No formatting, no name resolution.
package motion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taskops/motion-api-client/pkg/client"
	"github.com/taskops/motion-api-client/pkg/normalize"
	"github.com/taskops/motion-api-client/pkg/pagination"
)

// API exposes typed listing operations against the Motion API.
type API struct {
	client *client.Client
	logger zerolog.Logger
}

// New creates an API facade over a configured client.
func New(c *client.Client) *API {
	return &API{
		client: c,
		logger: log.With().Str("component", "motion-api").Logger(),
	}
}

// fetchPage issues one GET for a list endpoint and unwraps the payload.
func (a *API) fetchPage(ctx context.Context, path string, query url.Values, resource, cursor string) (pagination.Page[json.RawMessage], error) {
	empty := pagination.Page[json.RawMessage]{}

	params := url.Values{}
	for key, values := range query {
		params[key] = values
	}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	endpoint := path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	resp, err := a.client.Get(ctx, endpoint)
	if err != nil {
		return empty, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, fmt.Errorf("read response body: %w", err)
	}

	// The unwrapper works from payload structure; the shape table is the
	// caller-side contract, so a deviation is worth a diagnostic.
	if observed := shapeOfPayload(body); observed != ShapeOf(resource) {
		a.logger.Warn().
			Str("resource", resource).
			Str("endpoint", path).
			Msg("Response shape differs from resource table")
	}

	return pagination.Unwrap(body, resource), nil
}

// collectResource walks all pages of a list endpoint and decodes each item.
// Items that fail to decode are skipped with a diagnostic; a fetch error
// returns the partial result alongside the error.
func collectResource[T any](a *API, ctx context.Context, path string, query url.Values, resource string, opts pagination.CollectOptions, decode func(json.RawMessage) (T, error)) (pagination.Result[T], error) {
	opts.Resource = resource

	raw, err := pagination.Collect(ctx, func(ctx context.Context, cursor string) (pagination.Page[json.RawMessage], error) {
		return a.fetchPage(ctx, path, query, resource, cursor)
	}, opts)

	result := pagination.Result[T]{
		Truncated:    raw.Truncated,
		Reason:       raw.Reason,
		PagesFetched: raw.PagesFetched,
	}

	for _, item := range raw.Items {
		decoded, decodeErr := decode(item)
		if decodeErr != nil {
			a.logger.Warn().
				Err(decodeErr).
				Str("resource", resource).
				Msg("Skipping undecodable item")
			continue
		}
		result.Items = append(result.Items, decoded)
	}

	return result, err
}

// ListTasks lists tasks, optionally scoped to a workspace.
func (a *API) ListTasks(ctx context.Context, workspaceID string, opts pagination.CollectOptions) (pagination.Result[Task], error) {
	query := url.Values{}
	if workspaceID != "" {
		query.Set("workspaceId", workspaceID)
	}
	return collectResource(a, ctx, "/tasks", query, "tasks", opts, decodeTask)
}

// GetTask fetches a single task by ID.
func (a *API) GetTask(ctx context.Context, taskID string) (Task, error) {
	resp, err := a.client.Get(ctx, "/tasks/"+url.PathEscape(taskID))
	if err != nil {
		return Task{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Task{}, fmt.Errorf("read response body: %w", err)
	}

	return decodeTask(body)
}

// ListProjects lists projects, optionally scoped to a workspace.
func (a *API) ListProjects(ctx context.Context, workspaceID string, opts pagination.CollectOptions) (pagination.Result[Project], error) {
	query := url.Values{}
	if workspaceID != "" {
		query.Set("workspaceId", workspaceID)
	}
	return collectResource(a, ctx, "/projects", query, "projects", opts, decodeProject)
}

// ListWorkspaces lists all workspaces visible to the API key.
func (a *API) ListWorkspaces(ctx context.Context, opts pagination.CollectOptions) (pagination.Result[Workspace], error) {
	return collectResource(a, ctx, "/workspaces", url.Values{}, "workspaces", opts, decodeWorkspace)
}

// ListUsers lists users, optionally scoped to a workspace.
func (a *API) ListUsers(ctx context.Context, workspaceID string, opts pagination.CollectOptions) (pagination.Result[User], error) {
	query := url.Values{}
	if workspaceID != "" {
		query.Set("workspaceId", workspaceID)
	}
	return collectResource(a, ctx, "/users", query, "users", opts, func(raw json.RawMessage) (User, error) {
		var user User
		if err := json.Unmarshal(raw, &user); err != nil {
			return User{}, fmt.Errorf("decode user: %w", err)
		}
		return user, nil
	})
}

// ListComments lists comments on a task.
func (a *API) ListComments(ctx context.Context, taskID string, opts pagination.CollectOptions) (pagination.Result[Comment], error) {
	query := url.Values{}
	query.Set("taskId", taskID)
	return collectResource(a, ctx, "/comments", query, "comments", opts, func(raw json.RawMessage) (Comment, error) {
		var comment Comment
		if err := json.Unmarshal(raw, &comment); err != nil {
			return Comment{}, fmt.Errorf("decode comment: %w", err)
		}
		return comment, nil
	})
}

// ListStatuses lists the statuses of a workspace. The endpoint returns a
// bare array, so the walk completes after a single page.
func (a *API) ListStatuses(ctx context.Context, workspaceID string, opts pagination.CollectOptions) (pagination.Result[normalize.Status], error) {
	query := url.Values{}
	if workspaceID != "" {
		query.Set("workspaceId", workspaceID)
	}
	return collectResource(a, ctx, "/statuses", query, "statuses", opts, func(raw json.RawMessage) (normalize.Status, error) {
		return normalize.NormalizeStatus(raw), nil
	})
}
