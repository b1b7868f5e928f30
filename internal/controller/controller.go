// Package controller holds the client-side view state of the todo list:
// the current filter, the fetched todos and categories, and the derived
// summary counts. Every mutation goes through the remote API and is
// followed by a re-fetch, so the server stays the source of truth. The
// one exception is reordering, which is applied optimistically and rolled
// back when the server rejects it.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/taskdeck/taskdeck/internal/api"
	"github.com/taskdeck/taskdeck/internal/model"
)

// TodoAPI is the slice of the todo service the controller consumes.
type TodoAPI interface {
	List(ctx context.Context, filter api.TodoFilter) ([]model.Todo, int, error)
	Create(ctx context.Context, input api.CreateTodoInput) (model.Todo, error)
	Update(ctx context.Context, id string, input api.UpdateTodoInput) (model.Todo, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string) (model.Todo, error)
	Reorder(ctx context.Context, orderedIDs []string) (api.Ack, error)
	BulkUpdate(ctx context.Context, ids []string, action api.BulkAction) (api.Ack, error)
	ClearCompleted(ctx context.Context) (api.Ack, error)
	Stats(ctx context.Context) (model.Stats, error)
}

// CategoryAPI is the slice of the category service the controller consumes.
type CategoryAPI interface {
	List(ctx context.Context) ([]model.Category, error)
	Create(ctx context.Context, input api.CreateCategoryInput) (model.Category, error)
	Update(ctx context.Context, id string, input api.UpdateCategoryInput) (model.Category, error)
	Delete(ctx context.Context, id string) error
}

// ReorderPhase tracks the lifecycle of an optimistic reorder.
type ReorderPhase int

const (
	// ReorderIdle means no reorder is in flight.
	ReorderIdle ReorderPhase = iota

	// ReorderPending means the local order has been changed but the
	// server has not confirmed it yet.
	ReorderPending

	// ReorderConfirmed means the server accepted the last reorder.
	ReorderConfirmed

	// ReorderReverted means the server rejected the last reorder and the
	// local order was rolled back.
	ReorderReverted
)

// Summary is the locally derived count breakdown of the loaded todos.
type Summary struct {
	Total     int
	Active    int
	Completed int
	Overdue   int
}

// Controller owns the loaded view state. All methods are safe for
// concurrent use; command closures in the UI run on their own goroutines.
type Controller struct {
	mu sync.Mutex

	todoAPI     TodoAPI
	categoryAPI CategoryAPI
	logger      *slog.Logger
	now         func() time.Time

	filter     api.TodoFilter
	todos      []model.Todo
	totalCount int
	categories []model.Category

	// allTodos is the unfiltered list, kept alongside the filtered one so
	// the summary counts cover the whole collection.
	allTodos []model.Todo

	// confirmedOrder is the last server-acknowledged id ordering of the
	// loaded todos. Rollback restores it.
	confirmedOrder []string
	reorderPhase   ReorderPhase
}

// New creates a controller over the given services.
func New(todoAPI TodoAPI, categoryAPI CategoryAPI) *Controller {
	return &Controller{
		todoAPI:     todoAPI,
		categoryAPI: categoryAPI,
		logger:      slog.Default(),
		now:         time.Now,
	}
}

// SetClock overrides the time source. Tests use it to pin "overdue".
func (c *Controller) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Filter returns the active filter.
func (c *Controller) Filter() api.TodoFilter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// SetFilter replaces the active filter and re-fetches the list.
func (c *Controller) SetFilter(ctx context.Context, filter api.TodoFilter) error {
	c.mu.Lock()
	c.filter = filter
	c.mu.Unlock()
	return c.Refresh(ctx)
}

// ClearFilter drops every filter constraint and re-fetches.
func (c *Controller) ClearFilter(ctx context.Context) error {
	return c.SetFilter(ctx, api.TodoFilter{})
}

// Todos returns a copy of the loaded todos in display order.
func (c *Controller) Todos() []model.Todo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Todo(nil), c.todos...)
}

// TotalCount returns the server-side total for the active filter.
func (c *Controller) TotalCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalCount
}

// Categories returns a copy of the loaded categories.
func (c *Controller) Categories() []model.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Category(nil), c.categories...)
}

// ReorderState returns the phase of the last reorder.
func (c *Controller) ReorderState() ReorderPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reorderPhase
}

// Refresh re-fetches the todo list for the active filter, the unfiltered
// list (the summary counts cover the whole collection) and the category
// list, replacing the loaded state with the server's.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	filter := c.filter
	c.mu.Unlock()

	todos, count, err := c.todoAPI.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("fetching todos: %w", err)
	}
	allTodos := todos
	if !filter.IsZero() {
		allTodos, _, err = c.todoAPI.List(ctx, api.TodoFilter{})
		if err != nil {
			return fmt.Errorf("fetching unfiltered todos: %w", err)
		}
	}
	categories, err := c.categoryAPI.List(ctx)
	if err != nil {
		return fmt.Errorf("fetching categories: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.todos = todos
	c.allTodos = allTodos
	c.totalCount = count
	c.categories = categories
	c.confirmedOrder = todoIDs(todos)
	if c.reorderPhase == ReorderPending {
		c.reorderPhase = ReorderConfirmed
	}
	return nil
}

// Add creates a todo and re-fetches.
func (c *Controller) Add(ctx context.Context, input api.CreateTodoInput) (model.Todo, error) {
	todo, err := c.todoAPI.Create(ctx, input)
	if err != nil {
		return model.Todo{}, err
	}
	return todo, c.Refresh(ctx)
}

// Update applies a partial update and re-fetches.
func (c *Controller) Update(ctx context.Context, id string, input api.UpdateTodoInput) (model.Todo, error) {
	todo, err := c.todoAPI.Update(ctx, id, input)
	if err != nil {
		return model.Todo{}, err
	}
	return todo, c.Refresh(ctx)
}

// Remove deletes a todo and re-fetches.
func (c *Controller) Remove(ctx context.Context, id string) error {
	if err := c.todoAPI.Delete(ctx, id); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// Toggle flips a todo's completion state and re-fetches.
func (c *Controller) Toggle(ctx context.Context, id string) (model.Todo, error) {
	todo, err := c.todoAPI.Toggle(ctx, id)
	if err != nil {
		return model.Todo{}, err
	}
	return todo, c.Refresh(ctx)
}

// BulkUpdate applies an action to several todos and re-fetches.
func (c *Controller) BulkUpdate(ctx context.Context, ids []string, action api.BulkAction) error {
	if _, err := c.todoAPI.BulkUpdate(ctx, ids, action); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// ClearCompleted deletes all completed todos and re-fetches.
func (c *Controller) ClearCompleted(ctx context.Context) error {
	if _, err := c.todoAPI.ClearCompleted(ctx); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// Move reorders the loaded list by moving the todo at index from to index
// to. The new order is applied locally first and submitted to the server;
// a rejected submission rolls the list back to the last confirmed order.
func (c *Controller) Move(ctx context.Context, from, to int) error {
	c.mu.Lock()
	if from < 0 || from >= len(c.todos) || to < 0 || to >= len(c.todos) {
		c.mu.Unlock()
		return fmt.Errorf("move %d -> %d out of range for %d todos", from, to, len(c.todos))
	}
	if from == to {
		c.mu.Unlock()
		return nil
	}

	moved := c.todos[from]
	reordered := append([]model.Todo(nil), c.todos[:from]...)
	reordered = append(reordered, c.todos[from+1:]...)
	tail := append([]model.Todo(nil), reordered[to:]...)
	reordered = append(reordered[:to], moved)
	reordered = append(reordered, tail...)

	c.todos = reordered
	c.reorderPhase = ReorderPending
	orderedIDs := todoIDs(reordered)
	c.mu.Unlock()

	if _, err := c.todoAPI.Reorder(ctx, orderedIDs); err != nil {
		c.rollbackOrder()
		// Re-fetch the server-confirmed list; the locally restored order
		// may already be stale. Best-effort: the reorder failure is the
		// error that reaches the caller.
		if refreshErr := c.Refresh(ctx); refreshErr != nil {
			c.logger.Warn("refresh after reorder rollback failed", "error", refreshErr)
		}
		return fmt.Errorf("reordering todos: %w", err)
	}
	return c.Refresh(ctx)
}

// rollbackOrder restores the last server-confirmed ordering.
func (c *Controller) rollbackOrder() {
	c.mu.Lock()
	defer c.mu.Unlock()

	byID := make(map[string]model.Todo, len(c.todos))
	for _, todo := range c.todos {
		byID[todo.ID] = todo
	}

	restored := make([]model.Todo, 0, len(c.confirmedOrder))
	for _, id := range c.confirmedOrder {
		if todo, ok := byID[id]; ok {
			restored = append(restored, todo)
		}
	}
	c.todos = restored
	c.reorderPhase = ReorderReverted
	c.logger.Warn("reorder rejected, restored confirmed order")
}

// AddCategory creates a category and re-fetches.
func (c *Controller) AddCategory(ctx context.Context, input api.CreateCategoryInput) (model.Category, error) {
	cat, err := c.categoryAPI.Create(ctx, input)
	if err != nil {
		return model.Category{}, err
	}
	return cat, c.Refresh(ctx)
}

// UpdateCategory applies a partial category update and re-fetches.
func (c *Controller) UpdateCategory(ctx context.Context, id string, input api.UpdateCategoryInput) (model.Category, error) {
	cat, err := c.categoryAPI.Update(ctx, id, input)
	if err != nil {
		return model.Category{}, err
	}
	return cat, c.Refresh(ctx)
}

// RemoveCategory deletes a category and re-fetches. Todos that referenced
// it come back from the server without it.
func (c *Controller) RemoveCategory(ctx context.Context, id string) error {
	if err := c.categoryAPI.Delete(ctx, id); err != nil {
		return err
	}
	return c.Refresh(ctx)
}

// Summary derives the count breakdown from the unfiltered todo list, so
// the counts stay stable while a filter narrows the visible list.
func (c *Controller) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ComputeSummary(c.allTodos, c.now())
}

// ServerStats fetches the server-computed aggregate statistics.
func (c *Controller) ServerStats(ctx context.Context) (model.Stats, error) {
	return c.todoAPI.Stats(ctx)
}

// ComputeSummary tallies the todos against the given clock. A todo is
// overdue when its due date has passed and it is not completed; it still
// counts as active.
func ComputeSummary(todos []model.Todo, now time.Time) Summary {
	var s Summary
	for _, todo := range todos {
		s.Total++
		if todo.Completed {
			s.Completed++
			continue
		}
		s.Active++
		if todo.IsOverdue(now) {
			s.Overdue++
		}
	}
	return s
}

func todoIDs(todos []model.Todo) []string {
	ids := make([]string, len(todos))
	for i, todo := range todos {
		ids[i] = todo.ID
	}
	return ids
}
