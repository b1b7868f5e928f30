package api

import (
	"context"
	"strings"

	"github.com/taskdeck/taskdeck/internal/model"
)

// CreateCategoryInput holds the user-supplied fields for a new category.
type CreateCategoryInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// UpdateCategoryInput is a partial category update.
type UpdateCategoryInput struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// categoryListResponse is the paginated list envelope.
type categoryListResponse struct {
	Results []model.Category `json:"results"`
	Count   int              `json:"count"`
}

// CategoryService provides typed request/response mapping for the category
// endpoints. Deletion semantics for todos referencing a deleted category
// are defined by the server, not here.
type CategoryService struct {
	client *Client
}

// NewCategoryService creates a CategoryService on top of the given client.
func NewCategoryService(c *Client) *CategoryService {
	return &CategoryService{client: c}
}

// List fetches all categories.
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	var resp categoryListResponse
	if err := s.client.Get(ctx, "/categories/", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// Get fetches a single category by id.
func (s *CategoryService) Get(ctx context.Context, id string) (model.Category, error) {
	var cat model.Category
	if err := s.client.Get(ctx, "/categories/"+id+"/", nil, &cat); err != nil {
		return model.Category{}, err
	}
	return cat, nil
}

// Create creates a new category.
func (s *CategoryService) Create(ctx context.Context, input CreateCategoryInput) (model.Category, error) {
	if strings.TrimSpace(input.Name) == "" {
		return model.Category{}, &ValidationError{Field: "name", Message: "name is required"}
	}

	var cat model.Category
	if err := s.client.Post(ctx, "/categories/", input, &cat); err != nil {
		return model.Category{}, err
	}
	return cat, nil
}

// Update applies a partial update to a category.
func (s *CategoryService) Update(ctx context.Context, id string, input UpdateCategoryInput) (model.Category, error) {
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return model.Category{}, &ValidationError{Field: "name", Message: "name must not be empty"}
	}

	var cat model.Category
	if err := s.client.Put(ctx, "/categories/"+id+"/", input, &cat); err != nil {
		return model.Category{}, err
	}
	return cat, nil
}

// Delete removes a category by id.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	return s.client.Delete(ctx, "/categories/"+id+"/", nil)
}
