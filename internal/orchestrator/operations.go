package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"actcal/internal/apperr"
	"actcal/internal/convert"
	appLog "actcal/internal/log"
	"actcal/internal/model"
)

var errProviderDisabled = apperr.New(apperr.KindProvider, "orchestrator", "external calendar is not configured")

// LoadAll refreshes the registry from both providers. Categories must load
// first. The two sources are independent: each commits what it fetched, a
// local failure is returned once the external calendar has been tried, and
// an external failure is only logged.
func (o *Orchestrator) LoadAll(ctx context.Context) error {
	o.begin(OpLoadAll)
	err := o.loadAll(ctx)
	o.settle(OpLoadAll, err)
	return err
}

func (o *Orchestrator) loadAll(ctx context.Context) error {
	if _, err := o.categories.LoadCategories(ctx); err != nil {
		appLog.Error("load categories failed", err)
		return err
	}

	localErr := o.loadLocal(ctx)
	o.loadExternal(ctx)
	return localErr
}

// loadLocal commits the backend's activities. Its error is reported only
// after the external calendar has been tried.
func (o *Orchestrator) loadLocal(ctx context.Context) error {
	wire, err := o.backend.ListActivities(ctx)
	if err != nil {
		appLog.Error("load local activities failed", err)
		return fmt.Errorf("load local activities: %w", err)
	}
	local := make([]model.Activity, 0, len(wire))
	for _, w := range wire {
		a, err := convert.ActivityFromWire(w)
		if err != nil {
			appLog.Warn("skipping local activity", "id", w.ID, "err", err)
			continue
		}
		if a.Category.ID == "" {
			if c, ok := o.categories.CategoryByID(a.CategoryID); ok {
				a.Category = c
			}
		}
		local = append(local, a)
	}
	o.commit(local)
	appLog.Info("local activities loaded", "count", len(local))
	return nil
}

// loadExternal commits the synced calendar's events. Failures are logged
// and never reach the caller.
func (o *Orchestrator) loadExternal(ctx context.Context) {
	if !o.signedIn(ctx) {
		appLog.Debug("external calendar skipped", "reason", "not signed in")
		return
	}
	synced, ok := o.categories.SyncedCategory()
	if !ok {
		appLog.Warn("external calendar skipped", "reason", "no synced category")
		return
	}

	events, err := o.provider.ListEvents(ctx)
	if err != nil {
		appLog.Error("load external events failed", err)
		return
	}
	external := make([]model.Activity, 0, len(events))
	for _, ev := range events {
		a, err := convert.FromGraphEvent(ev, synced)
		if err != nil {
			appLog.Warn("skipping external event", "id", ev.ID, "err", err)
			continue
		}
		external = append(external, a)
	}
	o.commit(external)
	appLog.Info("external events loaded", "count", len(external))
}

func (o *Orchestrator) commit(acts []model.Activity) {
	for _, a := range acts {
		if err := o.reg.Upsert(a); err != nil {
			appLog.Warn("skipping activity without id", "title", a.Title)
		}
	}
}

// LoadOne fetches a single record from the provider that owns categoryID,
// registers it and selects it.
func (o *Orchestrator) LoadOne(ctx context.Context, id, categoryID string) (model.Activity, error) {
	o.begin(OpLoadOne)
	a, err := o.loadOne(ctx, id, categoryID)
	o.settle(OpLoadOne, err)
	if err != nil {
		appLog.Error("load activity failed", err, "id", id, "category", categoryID)
	}
	return a, err
}

func (o *Orchestrator) loadOne(ctx context.Context, id, categoryID string) (model.Activity, error) {
	if id == "" {
		return model.Activity{}, apperr.New(apperr.KindInvalidInput, "load activity", "empty id")
	}
	if o.cachedLoadOne {
		if a, ok := o.reg.Get(id); ok {
			o.selectActivity(a)
			return a, nil
		}
	}

	cat, known := o.categories.CategoryByID(categoryID)

	var a model.Activity
	if known && cat.ExternallySynced() {
		if o.provider == nil {
			return model.Activity{}, errProviderDisabled
		}
		if !o.provider.IsSignedIn(ctx) {
			return model.Activity{}, apperr.New(apperr.KindUnauthenticated, "load external event", "not signed in")
		}
		ev, err := o.provider.GetEvent(ctx, id)
		if err != nil {
			return model.Activity{}, err
		}
		if a, err = convert.FromGraphEvent(ev, cat); err != nil {
			return model.Activity{}, err
		}
	} else {
		w, err := o.backend.GetActivity(ctx, id)
		if err != nil {
			return model.Activity{}, err
		}
		if a, err = convert.ActivityFromWire(w); err != nil {
			return model.Activity{}, err
		}
		if a.Category.ID == "" && known {
			a.Category = cat
		}
	}

	if err := o.reg.Upsert(a); err != nil {
		return model.Activity{}, err
	}
	o.selectActivity(a)
	return a, nil
}

// CreateLocal stores a in the backend. An empty id is replaced with a new
// UUID. Fields echoed back by the backend take precedence.
func (o *Orchestrator) CreateLocal(ctx context.Context, a model.Activity) (model.Activity, error) {
	o.begin(OpCreate)
	out, err := o.createLocal(ctx, a)
	o.settle(OpCreate, err)
	if err != nil {
		appLog.Error("create local activity failed", err, "id", a.ID, "title", a.Title)
	}
	return out, err
}

func (o *Orchestrator) createLocal(ctx context.Context, a model.Activity) (model.Activity, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a = convert.NormalizeAllDay(o.withCategory(a))
	if err := convert.Validate(a); err != nil {
		return model.Activity{}, err
	}

	echo, err := o.backend.CreateActivity(ctx, convert.ActivityToWire(a))
	if err != nil {
		return model.Activity{}, err
	}
	if echo != nil {
		stored, err := convert.ActivityFromWire(*echo)
		if err != nil {
			appLog.Warn("ignoring unreadable create response", "id", a.ID, "err", err)
		} else {
			if stored.Category.ID == "" {
				stored.Category = a.Category
			}
			a = stored
		}
	}

	if err := o.reg.Upsert(a); err != nil {
		return model.Activity{}, err
	}
	o.selectActivity(a)
	return a, nil
}

// CreateExternal creates a in the external calendar and registers it under
// the id the provider assigned.
func (o *Orchestrator) CreateExternal(ctx context.Context, a model.Activity) (model.Activity, error) {
	o.begin(OpCreate)
	out, err := o.createExternal(ctx, a)
	o.settle(OpCreate, err)
	if err != nil {
		appLog.Error("create external event failed", err, "title", a.Title)
	}
	return out, err
}

func (o *Orchestrator) createExternal(ctx context.Context, a model.Activity) (model.Activity, error) {
	if o.provider == nil {
		return model.Activity{}, errProviderDisabled
	}
	a = o.withCategory(a)
	if a.Category.ID == "" {
		if synced, ok := o.categories.SyncedCategory(); ok {
			a.Category = synced
			a.CategoryID = synced.ID
		}
	}
	a = convert.NormalizeAllDay(a)
	if err := convert.Validate(a); err != nil {
		return model.Activity{}, err
	}

	created, err := o.provider.CreateEvent(ctx, convert.ToGraphEvent(a))
	if err != nil {
		return model.Activity{}, err
	}
	if created.ID == "" {
		return model.Activity{}, apperr.New(apperr.KindProvider, "create external event", "provider returned no id")
	}
	a.ID = created.ID
	a.EventLookup = created.ID

	if err := o.reg.Upsert(a); err != nil {
		return model.Activity{}, err
	}
	o.selectActivity(a)
	return a, nil
}

// UpdateLocal applies p over the registered record with the same id, sends
// the merged record to the backend and registers it. Fields p leaves nil
// keep their registered values.
func (o *Orchestrator) UpdateLocal(ctx context.Context, p model.ActivityPatch) (model.Activity, error) {
	o.begin(OpUpdate)
	out, err := o.updateLocal(ctx, p)
	o.settle(OpUpdate, err)
	if err != nil {
		appLog.Error("update local activity failed", err, "id", p.ID)
	}
	return out, err
}

func (o *Orchestrator) updateLocal(ctx context.Context, p model.ActivityPatch) (model.Activity, error) {
	if p.ID == "" {
		return model.Activity{}, apperr.New(apperr.KindInvalidInput, "update activity", "empty id")
	}
	base, ok := o.reg.Get(p.ID)
	if !ok {
		base = model.Activity{ID: p.ID}
	}
	merged := convert.NormalizeAllDay(o.withCategory(p.Apply(base)))
	if err := convert.Validate(merged); err != nil {
		return model.Activity{}, err
	}

	if err := o.backend.UpdateActivity(ctx, merged.ID, convert.ActivityToWire(merged)); err != nil {
		return model.Activity{}, err
	}
	if err := o.reg.Upsert(merged); err != nil {
		return model.Activity{}, err
	}
	o.selectActivity(merged)
	return merged, nil
}

// UpdateExternal replaces the external event a.ID with a and registers a as
// given.
func (o *Orchestrator) UpdateExternal(ctx context.Context, a model.Activity) (model.Activity, error) {
	o.begin(OpUpdate)
	out, err := o.updateExternal(ctx, a)
	o.settle(OpUpdate, err)
	if err != nil {
		appLog.Error("update external event failed", err, "id", a.ID)
	}
	return out, err
}

func (o *Orchestrator) updateExternal(ctx context.Context, a model.Activity) (model.Activity, error) {
	if o.provider == nil {
		return model.Activity{}, errProviderDisabled
	}
	if a.ID == "" {
		return model.Activity{}, apperr.New(apperr.KindInvalidInput, "update external event", "empty id")
	}
	a = convert.NormalizeAllDay(o.withCategory(a))
	if err := convert.Validate(a); err != nil {
		return model.Activity{}, err
	}
	if a.EventLookup == "" {
		a.EventLookup = a.ID
	}

	if err := o.provider.UpdateEvent(ctx, convert.ToGraphEvent(a)); err != nil {
		return model.Activity{}, err
	}
	if err := o.reg.Upsert(a); err != nil {
		return model.Activity{}, err
	}
	o.selectActivity(a)
	return a, nil
}

// DeleteExternal removes the event from the external calendar and then from
// the registry.
func (o *Orchestrator) DeleteExternal(ctx context.Context, id string) error {
	o.begin(OpDelete)
	err := o.deleteWith(ctx, id, func(ctx context.Context, id string) error {
		if o.provider == nil {
			return errProviderDisabled
		}
		return o.provider.DeleteEvent(ctx, id)
	})
	o.settle(OpDelete, err)
	if err != nil {
		appLog.Error("delete external event failed", err, "id", id)
	}
	return err
}

// DeleteLocal removes the activity from the backend and then from the
// registry.
func (o *Orchestrator) DeleteLocal(ctx context.Context, id string) error {
	o.begin(OpDelete)
	err := o.deleteWith(ctx, id, o.backend.DeleteActivity)
	o.settle(OpDelete, err)
	if err != nil {
		appLog.Error("delete local activity failed", err, "id", id)
	}
	return err
}

func (o *Orchestrator) deleteWith(ctx context.Context, id string, del func(context.Context, string) error) error {
	if id == "" {
		return apperr.New(apperr.KindInvalidInput, "delete activity", "empty id")
	}
	if err := del(ctx, id); err != nil {
		return err
	}
	o.reg.Remove(id)
	o.clearSelection(id)
	return nil
}

// ReserveRoom asks the backend to book a room outside the department. The
// registry is not touched.
func (o *Orchestrator) ReserveRoom(ctx context.Context, req model.NonDepartmentRoomReservationRequest) (string, error) {
	o.begin(OpReserveRoom)
	msg, err := o.backend.ReserveNonDepartmentRoom(ctx, req)
	o.settle(OpReserveRoom, err)
	if err != nil {
		appLog.Error("reserve room failed", err, "activity", req.ActivityID, "room", req.RoomEmail)
		return "", err
	}
	return msg, nil
}

// CurrentUser reports the identity the external calendar is accessed as.
func (o *Orchestrator) CurrentUser(ctx context.Context) (model.GraphUser, error) {
	if o.provider == nil {
		return model.GraphUser{}, errProviderDisabled
	}
	if !o.provider.IsSignedIn(ctx) {
		return model.GraphUser{}, apperr.New(apperr.KindUnauthenticated, "current user", "not signed in")
	}
	u, err := o.provider.CurrentUser(ctx)
	if err != nil {
		appLog.Error("current user lookup failed", err)
		return model.GraphUser{}, err
	}
	return u, nil
}

// withCategory fills in a.Category from a.CategoryID when it is missing or
// stale.
func (o *Orchestrator) withCategory(a model.Activity) model.Activity {
	if a.CategoryID == "" {
		a.CategoryID = a.Category.ID
	}
	if c, ok := o.categories.CategoryByID(a.CategoryID); ok {
		a.Category = c
	}
	return a
}
