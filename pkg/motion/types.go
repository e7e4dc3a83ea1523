package motion

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/taskops/motion-api-client/pkg/normalize"
)

// Shape identifies which response layout a resource uses.
type Shape int

const (
	// ShapeWrapped is {"meta":{...},"<resource>":[...]}.
	ShapeWrapped Shape = iota

	// ShapeBare is a top-level JSON array.
	ShapeBare
)

// resourceShapes is the per-resource shape table. The unwrapper itself works
// from payload structure; this table is the caller-side contract of what each
// endpoint is expected to return, and supplies the envelope property name.
var resourceShapes = map[string]Shape{
	"tasks":      ShapeWrapped,
	"projects":   ShapeWrapped,
	"workspaces": ShapeWrapped,
	"users":      ShapeWrapped,
	"comments":   ShapeWrapped,
	"statuses":   ShapeBare,
	"schedules":  ShapeBare,
}

// ShapeOf returns the expected response shape for a resource.
// Unknown resources default to the wrapped shape.
func ShapeOf(resource string) Shape {
	if shape, ok := resourceShapes[resource]; ok {
		return shape
	}
	return ShapeWrapped
}

// shapeOfPayload reports the layout a payload actually uses.
func shapeOfPayload(raw []byte) Shape {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return ShapeBare
	}
	return ShapeWrapped
}

// Task is a Motion task with its union fields resolved to canonical shapes.
type Task struct {
	ID          string
	Name        string
	Description string
	WorkspaceID string
	ProjectID   string
	Completed   bool
	DueDate     string
	Status      normalize.Status
	Duration    normalize.Duration
	Labels      []string
}

// rawTask mirrors the wire layout; union fields stay raw until normalized.
type rawTask struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	WorkspaceID string          `json:"workspaceId"`
	ProjectID   string          `json:"projectId"`
	Completed   bool            `json:"completed"`
	DueDate     string          `json:"dueDate"`
	Status      json.RawMessage `json:"status"`
	Duration    json.RawMessage `json:"duration"`
	Labels      json.RawMessage `json:"labels"`
}

// decodeTask decodes one task item and resolves its union fields.
func decodeTask(raw json.RawMessage) (Task, error) {
	var rt rawTask
	if err := json.Unmarshal(raw, &rt); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}

	return Task{
		ID:          rt.ID,
		Name:        rt.Name,
		Description: rt.Description,
		WorkspaceID: rt.WorkspaceID,
		ProjectID:   rt.ProjectID,
		Completed:   rt.Completed,
		DueDate:     rt.DueDate,
		Status:      normalize.NormalizeStatus(rt.Status),
		Duration:    normalize.NormalizeDuration(rt.Duration),
		Labels:      normalize.NormalizeLabels(rt.Labels),
	}, nil
}

// Project is a Motion project.
type Project struct {
	ID          string
	Name        string
	Description string
	WorkspaceID string
	Status      normalize.Status
}

type rawProject struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	WorkspaceID string          `json:"workspaceId"`
	Status      json.RawMessage `json:"status"`
}

func decodeProject(raw json.RawMessage) (Project, error) {
	var rp rawProject
	if err := json.Unmarshal(raw, &rp); err != nil {
		return Project{}, fmt.Errorf("decode project: %w", err)
	}

	return Project{
		ID:          rp.ID,
		Name:        rp.Name,
		Description: rp.Description,
		WorkspaceID: rp.WorkspaceID,
		Status:      normalize.NormalizeStatus(rp.Status),
	}, nil
}

// Workspace is a Motion workspace.
type Workspace struct {
	ID     string
	Name   string
	TeamID string
	Type   string
	Labels []string
}

type rawWorkspace struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	TeamID string          `json:"teamId"`
	Type   string          `json:"type"`
	Labels json.RawMessage `json:"labels"`
}

func decodeWorkspace(raw json.RawMessage) (Workspace, error) {
	var rw rawWorkspace
	if err := json.Unmarshal(raw, &rw); err != nil {
		return Workspace{}, fmt.Errorf("decode workspace: %w", err)
	}

	return Workspace{
		ID:     rw.ID,
		Name:   rw.Name,
		TeamID: rw.TeamID,
		Type:   rw.Type,
		Labels: normalize.NormalizeLabels(rw.Labels),
	}, nil
}

// User is a Motion user.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Comment is a Motion task comment.
type Comment struct {
	ID        string `json:"id"`
	TaskID    string `json:"taskId"`
	Content   string `json:"content"`
	CreatorID string `json:"creatorId"`
	CreatedAt string `json:"createdAt"`
}
