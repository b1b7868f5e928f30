// Package testutil provides an in-memory fake of the remote todo API for
// package-level tests. It implements just enough of the REST contract to
// exercise the client: bearer auth, the todo and category CRUD surface,
// and the auth endpoints.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck/internal/model"
)

// FakeAPI is a stateful in-memory stand-in for the remote server.
// All exported fields may be adjusted by tests before issuing requests.
type FakeAPI struct {
	Server *httptest.Server

	mu         sync.Mutex
	todos      []model.Todo
	categories []model.Category

	// AccessToken is the bearer token the fake accepts. Requests carrying
	// any other token answer 401.
	AccessToken string

	// RefreshToken is the refresh token the fake accepts.
	RefreshToken string

	// Password accepted by /auth/login/ for User.Email.
	Password string

	// User is the identity returned by auth endpoints.
	User model.User

	// FailReorder makes /todos/reorder/ answer 500, for rollback tests.
	FailReorder bool

	// Now lets tests pin the clock used for completed_at stamps.
	Now func() time.Time

	// Calls counts requests per "METHOD path" key.
	Calls map[string]int
}

// NewFakeAPI starts a fake server pre-authorized for "access-1" /
// "refresh-1" and closes it when the test finishes.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()

	f := &FakeAPI{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		Password:     "hunter2hunter2",
		User: model.User{
			ID:        "user-1",
			Email:     "ada@example.com",
			Username:  "ada",
			FirstName: "Ada",
			LastName:  "Lovelace",
			CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		Now:   time.Now,
		Calls: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/todos/", f.handleTodos)
	mux.HandleFunc("/categories/", f.handleCategories)
	mux.HandleFunc("/auth/", f.handleAuth)

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.Calls[r.Method+" "+r.URL.Path]++
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Server.Close)

	return f
}

// URL returns the fake's base URL.
func (f *FakeAPI) URL() string { return f.Server.URL }

// SeedTodos replaces the stored todos, assigning ids and order indexes to
// entries that lack them.
func (f *FakeAPI) SeedTodos(todos ...model.Todo) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.todos = nil
	for i, todo := range todos {
		if todo.ID == "" {
			todo.ID = uuid.New().String()
		}
		if todo.OrderIndex == 0 {
			todo.OrderIndex = i + 1
		}
		if todo.Priority == "" {
			todo.Priority = model.PriorityMedium
		}
		f.todos = append(f.todos, todo)
	}
}

// TodoOrder returns the stored todo ids in display order.
func (f *FakeAPI) TodoOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	sorted := append([]model.Todo(nil), f.todos...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderIndex < sorted[j].OrderIndex
	})
	ids := make([]string, len(sorted))
	for i, todo := range sorted {
		ids[i] = todo.ID
	}
	return ids
}

// CallCount returns how many requests hit "METHOD path".
func (f *FakeAPI) CallCount(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls[method+" "+path]
}

func (f *FakeAPI) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+f.AccessToken
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (f *FakeAPI) handleTodos(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	rest := strings.TrimPrefix(r.URL.Path, "/todos/")
	switch {
	case rest == "" && r.Method == http.MethodGet:
		f.listTodos(w, r)
	case rest == "" && r.Method == http.MethodPost:
		f.createTodo(w, r)
	case rest == "reorder/" && r.Method == http.MethodPost:
		f.reorderTodos(w, r)
	case rest == "bulk-update/" && r.Method == http.MethodPost:
		f.bulkUpdate(w, r)
	case rest == "clear-completed/" && r.Method == http.MethodDelete:
		f.clearCompleted(w)
	case rest == "stats/" && r.Method == http.MethodGet:
		f.stats(w)
	case strings.HasSuffix(rest, "/toggle/") && r.Method == http.MethodPatch:
		f.toggleTodo(w, strings.TrimSuffix(rest, "/toggle/"))
	default:
		f.todoByID(w, r, strings.TrimSuffix(rest, "/"))
	}
}

func (f *FakeAPI) listTodos(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var results []model.Todo
	for _, todo := range f.todos {
		if v := q.Get("completed"); v != "" && (v == "true") != todo.Completed {
			continue
		}
		if v := q.Get("priority"); v != "" && v != todo.Priority {
			continue
		}
		if v := q.Get("search"); v != "" &&
			!strings.Contains(strings.ToLower(todo.Name), strings.ToLower(v)) &&
			!strings.Contains(strings.ToLower(todo.Description), strings.ToLower(v)) {
			continue
		}
		if q.Get("overdue") == "true" && !todo.IsOverdue(f.Now()) {
			continue
		}
		results = append(results, todo)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].OrderIndex < results[j].OrderIndex
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

func (f *FakeAPI) createTodo(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        string     `json:"name"`
		Description string     `json:"description"`
		Priority    string     `json:"priority"`
		DueDate     *time.Time `json:"due_date"`
		CategoryIDs []string   `json:"category_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"name": {"this field is required"}})
		return
	}

	maxOrder := 0
	for _, todo := range f.todos {
		if todo.OrderIndex > maxOrder {
			maxOrder = todo.OrderIndex
		}
	}

	now := f.Now().UTC()
	todo := model.Todo{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: input.Description,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		OrderIndex:  maxOrder + 1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if todo.Priority == "" {
		todo.Priority = model.PriorityMedium
	}
	for _, id := range input.CategoryIDs {
		for _, cat := range f.categories {
			if cat.ID == id {
				todo.Categories = append(todo.Categories, cat)
			}
		}
	}

	f.todos = append(f.todos, todo)
	writeJSON(w, http.StatusCreated, todo)
}

func (f *FakeAPI) todoByID(w http.ResponseWriter, r *http.Request, id string) {
	idx := -1
	for i, todo := range f.todos {
		if todo.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeError(w, http.StatusNotFound, "todo not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, f.todos[idx])

	case http.MethodPut:
		var input struct {
			Name        *string    `json:"name"`
			Description *string    `json:"description"`
			Completed   *bool      `json:"completed"`
			Priority    *string    `json:"priority"`
			DueDate     *time.Time `json:"due_date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		todo := f.todos[idx]
		if input.Name != nil {
			todo.Name = *input.Name
		}
		if input.Description != nil {
			todo.Description = *input.Description
		}
		if input.Priority != nil {
			todo.Priority = *input.Priority
		}
		if input.DueDate != nil {
			todo.DueDate = input.DueDate
		}
		if input.Completed != nil {
			todo.Completed = *input.Completed
			now := f.Now().UTC()
			if todo.Completed {
				todo.CompletedAt = &now
			} else {
				todo.CompletedAt = nil
			}
		}
		todo.UpdatedAt = f.Now().UTC()
		f.todos[idx] = todo
		writeJSON(w, http.StatusOK, todo)

	case http.MethodDelete:
		f.todos = append(f.todos[:idx], f.todos[idx+1:]...)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *FakeAPI) toggleTodo(w http.ResponseWriter, id string) {
	for i, todo := range f.todos {
		if todo.ID != id {
			continue
		}
		todo.Completed = !todo.Completed
		now := f.Now().UTC()
		if todo.Completed {
			todo.CompletedAt = &now
		} else {
			todo.CompletedAt = nil
		}
		todo.UpdatedAt = now
		f.todos[i] = todo
		writeJSON(w, http.StatusOK, todo)
		return
	}
	writeError(w, http.StatusNotFound, "todo not found")
}

func (f *FakeAPI) reorderTodos(w http.ResponseWriter, r *http.Request) {
	if f.FailReorder {
		writeError(w, http.StatusInternalServerError, "reorder failed")
		return
	}

	var body struct {
		TodoOrders []struct {
			ID         string `json:"id"`
			OrderIndex int    `json:"order_index"`
		} `json:"todo_orders"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	for _, order := range body.TodoOrders {
		for i := range f.todos {
			if f.todos[i].ID == order.ID {
				f.todos[i].OrderIndex = order.OrderIndex
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "order updated"})
}

func (f *FakeAPI) bulkUpdate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TodoIDs []string `json:"todo_ids"`
		Action  string   `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	wanted := make(map[string]bool, len(body.TodoIDs))
	for _, id := range body.TodoIDs {
		wanted[id] = true
	}

	now := f.Now().UTC()
	switch body.Action {
	case "complete", "incomplete":
		complete := body.Action == "complete"
		for i := range f.todos {
			if !wanted[f.todos[i].ID] {
				continue
			}
			f.todos[i].Completed = complete
			if complete {
				ts := now
				f.todos[i].CompletedAt = &ts
			} else {
				f.todos[i].CompletedAt = nil
			}
			f.todos[i].UpdatedAt = now
		}
	case "delete":
		var kept []model.Todo
		for _, todo := range f.todos {
			if !wanted[todo.ID] {
				kept = append(kept, todo)
			}
		}
		f.todos = kept
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "bulk update applied"})
}

func (f *FakeAPI) clearCompleted(w http.ResponseWriter) {
	var kept []model.Todo
	for _, todo := range f.todos {
		if !todo.Completed {
			kept = append(kept, todo)
		}
	}
	f.todos = kept
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "completed todos deleted",
	})
}

func (f *FakeAPI) stats(w http.ResponseWriter) {
	now := f.Now()
	stats := model.Stats{CategoriesStats: map[string]model.CategoryStats{}}
	for _, todo := range f.todos {
		stats.TotalTodos++
		if todo.Completed {
			stats.CompletedTodos++
		} else {
			stats.PendingTodos++
		}
		if todo.IsOverdue(now) {
			stats.OverdueTodos++
		}
	}
	if stats.TotalTodos > 0 {
		stats.CompletionRate = float64(stats.CompletedTodos) / float64(stats.TotalTodos) * 100
	}
	writeJSON(w, http.StatusOK, stats)
}

func (f *FakeAPI) handleCategories(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	rest := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/categories/"), "/")
	switch {
	case rest == "" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"results": f.categories,
			"count":   len(f.categories),
		})

	case rest == "" && r.Method == http.MethodPost:
		var input struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Name == "" {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"name": {"this field is required"}})
			return
		}
		now := f.Now().UTC()
		cat := model.Category{
			ID:        uuid.New().String(),
			Name:      input.Name,
			Color:     input.Color,
			CreatedAt: now,
			UpdatedAt: now,
		}
		f.categories = append(f.categories, cat)
		writeJSON(w, http.StatusCreated, cat)

	default:
		f.categoryByID(w, r, rest)
	}
}

func (f *FakeAPI) categoryByID(w http.ResponseWriter, r *http.Request, id string) {
	idx := -1
	for i, cat := range f.categories {
		if cat.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		writeError(w, http.StatusNotFound, "category not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, f.categories[idx])

	case http.MethodPut:
		var input struct {
			Name  *string `json:"name"`
			Color *string `json:"color"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body")
			return
		}
		if input.Name != nil {
			f.categories[idx].Name = *input.Name
		}
		if input.Color != nil {
			f.categories[idx].Color = *input.Color
		}
		f.categories[idx].UpdatedAt = f.Now().UTC()
		writeJSON(w, http.StatusOK, f.categories[idx])

	case http.MethodDelete:
		f.categories = append(f.categories[:idx], f.categories[idx+1:]...)
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *FakeAPI) handleAuth(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/auth/login/":
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Email != f.User.Email || body.Password != f.Password {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid credentials"})
			return
		}
		f.writeSession(w)

	case "/auth/register/":
		var body struct {
			Email     string `json:"email"`
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.User.Email = body.Email
		f.User.Username = body.Username
		f.User.FirstName = body.FirstName
		f.User.LastName = body.LastName
		f.writeSession(w)

	case "/auth/logout/":
		var body struct {
			Refresh string `json:"refresh"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Refresh != f.RefreshToken {
			writeError(w, http.StatusBadRequest, "unknown refresh token")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})

	case "/auth/token/refresh/":
		var body struct {
			Refresh string `json:"refresh"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Refresh != f.RefreshToken {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "refresh token invalid"})
			return
		}
		f.AccessToken = "access-" + uuid.New().String()[:8]
		writeJSON(w, http.StatusOK, map[string]string{"access": f.AccessToken})

	case "/auth/profile/":
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
			return
		}
		if r.Method == http.MethodPut {
			var body struct {
				FirstName *string `json:"first_name"`
				LastName  *string `json:"last_name"`
				Username  *string `json:"username"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.FirstName != nil {
				f.User.FirstName = *body.FirstName
			}
			if body.LastName != nil {
				f.User.LastName = *body.LastName
			}
			if body.Username != nil {
				f.User.Username = *body.Username
			}
		}
		writeJSON(w, http.StatusOK, f.User)

	case "/auth/change-password/":
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid token"})
			return
		}
		var body struct {
			OldPassword     string `json:"old_password"`
			NewPassword     string `json:"new_password"`
			ConfirmPassword string `json:"confirm_password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.ConfirmPassword == "" {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"confirm_password": {"this field is required"}})
			return
		}
		if body.NewPassword != body.ConfirmPassword {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"confirm_password": {"passwords do not match"}})
			return
		}
		if body.OldPassword != f.Password {
			writeJSON(w, http.StatusBadRequest, map[string][]string{"old_password": {"wrong password"}})
			return
		}
		f.Password = body.NewPassword
		writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// writeSession answers a login/register with a fresh token pair.
func (f *FakeAPI) writeSession(w http.ResponseWriter) {
	f.AccessToken = "access-" + uuid.New().String()[:8]
	f.RefreshToken = "refresh-" + uuid.New().String()[:8]
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":    f.User,
		"access":  f.AccessToken,
		"refresh": f.RefreshToken,
		"message": "ok",
	})
}
