package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-widget/pkg/simplewidget"
)

// Repository implements simplewidget.Repository using in-memory storage
type Repository struct {
	mu            sync.RWMutex
	widgets       map[uuid.UUID]*simplewidget.Widget
	widgetsBySlug map[string]uuid.UUID // slug -> widget_id, live widgets only
}

// New creates a new in-memory repository
func New() simplewidget.Repository {
	return &Repository{
		widgets:       make(map[uuid.UUID]*simplewidget.Widget),
		widgetsBySlug: make(map[string]uuid.UUID),
	}
}

func (r *Repository) CreateWidget(ctx context.Context, widget *simplewidget.Widget) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.widgetsBySlug[widget.Slug]; taken {
		return simplewidget.ErrSlugTaken
	}

	// Create a copy to avoid external modifications
	widgetCopy := *widget
	r.widgets[widget.ID] = &widgetCopy
	r.widgetsBySlug[widget.Slug] = widget.ID

	return nil
}

func (r *Repository) GetWidget(ctx context.Context, id uuid.UUID) (*simplewidget.Widget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	widget, exists := r.widgets[id]
	if !exists || widget.DeletedAt != nil {
		return nil, simplewidget.ErrWidgetNotFound
	}

	// Return a copy to prevent external modifications
	widgetCopy := *widget
	return &widgetCopy, nil
}

func (r *Repository) GetWidgetBySlug(ctx context.Context, slug string) (*simplewidget.Widget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.widgetsBySlug[slug]
	if !exists {
		return nil, simplewidget.ErrWidgetNotFound
	}
	widget, exists := r.widgets[id]
	if !exists || widget.DeletedAt != nil {
		return nil, simplewidget.ErrWidgetNotFound
	}

	widgetCopy := *widget
	return &widgetCopy, nil
}

func (r *Repository) ListWidgets(ctx context.Context, ownerID uuid.UUID) ([]*simplewidget.Widget, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*simplewidget.Widget
	for _, widget := range r.widgets {
		if widget.OwnerID == ownerID && widget.DeletedAt == nil {
			widgetCopy := *widget
			result = append(result, &widgetCopy)
		}
	}

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

func (r *Repository) UpdateWidget(ctx context.Context, widget *simplewidget.Widget) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.widgets[widget.ID]
	if !exists || existing.DeletedAt != nil {
		return simplewidget.ErrWidgetNotFound
	}

	if existing.Slug != widget.Slug {
		if _, taken := r.widgetsBySlug[widget.Slug]; taken {
			return simplewidget.ErrSlugTaken
		}
		delete(r.widgetsBySlug, existing.Slug)
		r.widgetsBySlug[widget.Slug] = widget.ID
	}

	widgetCopy := *widget
	r.widgets[widget.ID] = &widgetCopy

	return nil
}

func (r *Repository) DeleteWidget(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	widget, exists := r.widgets[id]
	if !exists || widget.DeletedAt != nil {
		return simplewidget.ErrWidgetNotFound
	}

	// Soft delete; the slug is freed for reuse immediately.
	now := time.Now().UTC()
	widget.DeletedAt = &now
	widget.UpdatedAt = now
	widget.IsActive = false
	delete(r.widgetsBySlug, widget.Slug)

	return nil
}

func (r *Repository) SlugExists(ctx context.Context, slug string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.widgetsBySlug[slug]
	return exists, nil
}
