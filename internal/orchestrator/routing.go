package orchestrator

import (
	"context"

	"actcal/internal/apperr"
	"actcal/internal/model"
)

// External reports whether records of categoryID live in the external
// calendar.
func (o *Orchestrator) External(categoryID string) bool {
	c, ok := o.categories.CategoryByID(categoryID)
	return ok && c.ExternallySynced()
}

// Create sends a to the provider that owns its category.
func (o *Orchestrator) Create(ctx context.Context, a model.Activity) (model.Activity, error) {
	if o.External(categoryIDOf(a)) {
		return o.CreateExternal(ctx, a)
	}
	return o.CreateLocal(ctx, a)
}

// Update routes p by the patched category, falling back to the registered
// record's category. External events are always replaced in full, so the
// patch is applied to the registered record first.
func (o *Orchestrator) Update(ctx context.Context, p model.ActivityPatch) (model.Activity, error) {
	if p.ID == "" {
		return model.Activity{}, apperr.New(apperr.KindInvalidInput, "update activity", "empty id")
	}
	existing, _ := o.reg.Get(p.ID)
	merged := p.Apply(existing)
	if o.External(categoryIDOf(merged)) {
		return o.UpdateExternal(ctx, merged)
	}
	return o.UpdateLocal(ctx, p)
}

// Delete routes by categoryID, or by the registered record when categoryID
// is empty.
func (o *Orchestrator) Delete(ctx context.Context, id, categoryID string) error {
	if categoryID == "" {
		if a, ok := o.reg.Get(id); ok {
			categoryID = categoryIDOf(a)
		}
	}
	if o.External(categoryID) {
		return o.DeleteExternal(ctx, id)
	}
	return o.DeleteLocal(ctx, id)
}

func categoryIDOf(a model.Activity) string {
	if a.CategoryID != "" {
		return a.CategoryID
	}
	return a.Category.ID
}
