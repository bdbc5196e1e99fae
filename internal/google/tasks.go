package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"

	"meetprep/internal/models"
)

// TasksClient reads task lists and their open tasks.
type TasksClient struct {
	service *tasks.Service
	logger  *slog.Logger
}

// NewTasksClient creates a Tasks client from already-authenticated options.
func NewTasksClient(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*TasksClient, error) {
	service, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return &TasksClient{service: service, logger: logger}, nil
}

// ListTaskLists returns the user's task lists.
func (c *TasksClient) ListTaskLists(ctx context.Context, maxResults int64) ([]models.TaskList, error) {
	call := c.service.Tasklists.List().Context(ctx)
	if maxResults > 0 {
		call = call.MaxResults(maxResults)
	}
	res, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list task lists: %w", err)
	}

	lists := make([]models.TaskList, 0, len(res.Items))
	for _, l := range res.Items {
		if l == nil {
			continue
		}
		lists = append(lists, models.TaskList{ID: l.Id, Title: l.Title})
		if maxResults > 0 && int64(len(lists)) >= maxResults {
			break
		}
	}
	return lists, nil
}

// ListIncompleteTasks returns tasks of list that are not completed.
func (c *TasksClient) ListIncompleteTasks(ctx context.Context, list models.TaskList, maxResults int64) ([]models.TaskItem, error) {
	call := c.service.Tasks.List(list.ID).ShowCompleted(false).ShowHidden(false).Context(ctx)
	if maxResults > 0 {
		call = call.MaxResults(maxResults)
	}
	res, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for %q: %w", list.Title, err)
	}

	items := make([]models.TaskItem, 0, len(res.Items))
	for _, t := range res.Items {
		if t == nil || t.Status == "completed" || t.Title == "" {
			continue
		}
		items = append(items, toInternalTask(t, list.Title))
	}
	return items, nil
}

func toInternalTask(t *tasks.Task, listName string) models.TaskItem {
	item := models.TaskItem{
		ID:       t.Id,
		Title:    t.Title,
		Notes:    t.Notes,
		ListName: listName,
	}
	if t.Due != "" {
		if due, err := time.Parse(time.RFC3339, t.Due); err == nil {
			item.Due = &due
		}
	}
	return item
}
