// Package editor owns the CV state of one owner and routes every mutation,
// manual or assistant-driven, through a single update path.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/cv-assistant/internal/ai"
	"github.com/spigell/cv-assistant/internal/cv"
	"github.com/spigell/cv-assistant/internal/reconcile"
	"github.com/spigell/cv-assistant/internal/store"
)

// ErrUnknownCV is returned for ids the editor has not loaded.
var ErrUnknownCV = errors.New("unknown cv")

// Reducer derives the next CV state from the current one. It receives a
// private copy and may modify it freely.
type Reducer func(cv.CV) cv.CV

// Importer turns a transport-encoded document into a partial CV.
type Importer interface {
	Import(ctx context.Context, encoded, mimeType string) (*cv.Partial, error)
}

// Deps aggregates the collaborators of an Editor.
type Deps struct {
	Store      store.Store
	Assistant  ai.Assistant
	Reconciler *reconcile.Reconciler
	Importer   Importer
	Logger     *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Editor holds the owner's CVs in memory and persists every change.
type Editor struct {
	owner string
	deps  Deps

	mu    sync.Mutex
	order []string
	cvs   map[string]cv.CV
}

func New(owner string, deps Deps) *Editor {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Reconciler == nil {
		deps.Reconciler = reconcile.New(deps.Logger)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Editor{
		owner: owner,
		deps:  deps,
		cvs:   make(map[string]cv.CV),
	}
}

// Load replaces the in-memory state with the owner's stored CVs.
func (e *Editor) Load(ctx context.Context) error {
	docs, err := e.deps.Store.List(ctx, e.owner)
	if err != nil {
		return fmt.Errorf("load cvs: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.order = e.order[:0]
	e.cvs = make(map[string]cv.CV, len(docs))
	for _, doc := range docs {
		e.order = append(e.order, doc.ID)
		e.cvs[doc.ID] = doc
	}

	e.deps.Logger.Debug("cvs loaded", zap.String("owner", e.owner), zap.Int("count", len(docs)))
	return nil
}

// List returns copies of the loaded CVs in load/creation order.
func (e *Editor) List() []cv.CV {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]cv.CV, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.cvs[id].Clone())
	}
	return out
}

// Snapshot returns a copy of the CV with the given id.
func (e *Editor) Snapshot(id string) (cv.CV, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, ok := e.cvs[id]
	if !ok {
		return cv.CV{}, fmt.Errorf("%w: %s", ErrUnknownCV, id)
	}
	return doc.Clone(), nil
}

// Update applies reducer to the CV, stamps it and persists it. The new
// state is swapped in before the store is called and the editor stays
// locked until it answers, so readers never see a state that is later
// reverted. If the store fails the prior state is put back and the error
// returned.
func (e *Editor) Update(ctx context.Context, id string, reducer Reducer) (cv.CV, error) {
	return e.update(ctx, id, func(current cv.CV) (cv.CV, bool) {
		return reducer(current), true
	})
}

// update is Update with a reducer that can report it changed nothing, in
// which case nothing is stamped or persisted.
func (e *Editor) update(ctx context.Context, id string, reducer func(cv.CV) (cv.CV, bool)) (cv.CV, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev, ok := e.cvs[id]
	if !ok {
		return cv.CV{}, fmt.Errorf("%w: %s", ErrUnknownCV, id)
	}

	next, changed := reducer(prev.Clone())
	if !changed {
		return prev.Clone(), nil
	}

	next.ID = id
	next.Touch(e.deps.Now())
	e.cvs[id] = next

	if err := e.deps.Store.Update(ctx, id, next.Clone()); err != nil {
		e.cvs[id] = prev
		e.deps.Logger.Warn("persisting cv failed, reverted",
			zap.String("cv_id", id),
			zap.Error(err),
		)
		return prev.Clone(), fmt.Errorf("update cv %s: %w", id, err)
	}

	return next.Clone(), nil
}

// Create seeds a new CV from partial, which may be nil, and persists it.
func (e *Editor) Create(ctx context.Context, partial *cv.Partial) (cv.CV, error) {
	doc := cv.FromPartial(partial, "", e.deps.Now())

	created, err := e.deps.Store.Create(ctx, e.owner, doc)
	if err != nil {
		return cv.CV{}, fmt.Errorf("create cv: %w", err)
	}

	e.mu.Lock()
	e.order = append(e.order, created.ID)
	e.cvs[created.ID] = created.Clone()
	e.mu.Unlock()

	e.deps.Logger.Info("cv created", zap.String("cv_id", created.ID), zap.String("title", created.Title))
	return created, nil
}

// Delete removes the CV from the store and from memory.
func (e *Editor) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.cvs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCV, id)
	}

	if err := e.deps.Store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete cv %s: %w", id, err)
	}

	delete(e.cvs, id)
	for i, existing := range e.order {
		if existing == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}

	return nil
}

// Chat sends the message with the current CV to the assistant and applies
// the returned action, if any. Assistant failures never surface here; the
// error is only set when the CV is unknown or persisting fails.
func (e *Editor) Chat(ctx context.Context, id, message string) (ai.Reply, reconcile.Outcome, error) {
	if strings.TrimSpace(message) == "" {
		return ai.Reply{}, reconcile.Outcome{}, nil
	}
	if e.deps.Assistant == nil {
		return ai.Reply{}, reconcile.Outcome{}, errors.New("assistant is not configured")
	}

	snapshot, err := e.Snapshot(id)
	if err != nil {
		return ai.Reply{}, reconcile.Outcome{}, err
	}

	reply := e.deps.Assistant.Chat(ctx, message, snapshot)
	if !reply.HasAction() {
		return reply, reconcile.Outcome{}, nil
	}

	outcome, err := e.Apply(ctx, id, *reply.Action)
	return reply, outcome, err
}

// Apply runs an action through the reconciler against the latest state and
// persists the result when it changed anything.
func (e *Editor) Apply(ctx context.Context, id string, action ai.Action) (reconcile.Outcome, error) {
	var outcome reconcile.Outcome

	_, err := e.update(ctx, id, func(current cv.CV) (cv.CV, bool) {
		var next cv.CV
		next, outcome = e.deps.Reconciler.Apply(current, action)
		return next, outcome.Applied
	})

	return outcome, err
}

// SetPersonal merges fields into the personal block.
func (e *Editor) SetPersonal(ctx context.Context, id string, fields map[string]any) (reconcile.Outcome, error) {
	return e.Apply(ctx, id, ai.Action{
		Type:    ai.ActionUpdate,
		Section: string(cv.SectionPersonal),
		Data:    fields,
	})
}

// AddItem appends an item to a list section.
func (e *Editor) AddItem(ctx context.Context, id string, section cv.Section, fields map[string]any) (reconcile.Outcome, error) {
	return e.Apply(ctx, id, ai.Action{
		Type:    ai.ActionCreate,
		Section: string(section),
		Data:    fields,
	})
}

// UpdateItem merges fields into an existing item.
func (e *Editor) UpdateItem(ctx context.Context, id string, section cv.Section, itemID string, fields map[string]any) (reconcile.Outcome, error) {
	return e.Apply(ctx, id, ai.Action{
		Type:    ai.ActionUpdate,
		Section: string(section),
		ID:      itemID,
		Data:    fields,
	})
}

// RemoveItem deletes an item from a list section.
func (e *Editor) RemoveItem(ctx context.Context, id string, section cv.Section, itemID string) (reconcile.Outcome, error) {
	return e.Apply(ctx, id, ai.Action{
		Type:    ai.ActionDelete,
		Section: string(section),
		ID:      itemID,
	})
}

// Import runs the document through the importer and creates a CV from it.
func (e *Editor) Import(ctx context.Context, encoded, mimeType string) (cv.CV, error) {
	if e.deps.Importer == nil {
		return cv.CV{}, errors.New("importer is not configured")
	}

	partial, err := e.deps.Importer.Import(ctx, encoded, mimeType)
	if err != nil {
		return cv.CV{}, err
	}

	if partial == nil || partial.Empty() {
		e.deps.Logger.Warn("imported document yielded no cv data, creating an empty cv",
			zap.String("owner", e.owner), zap.String("mime_type", mimeType))
	}

	return e.Create(ctx, partial)
}
