package editor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/cv-assistant/internal/ai"
	"github.com/spigell/cv-assistant/internal/cv"
	"github.com/spigell/cv-assistant/internal/reconcile"
	"github.com/spigell/cv-assistant/internal/store"
)

type stubAssistant struct {
	reply    ai.Reply
	messages []string
	seen     []cv.CV
}

func (s *stubAssistant) Chat(_ context.Context, message string, snapshot cv.CV) ai.Reply {
	s.messages = append(s.messages, message)
	s.seen = append(s.seen, snapshot)
	return s.reply
}

// flakyStore fails updates while failing is set.
type flakyStore struct {
	store.Store
	failing bool
	updates int
}

func (f *flakyStore) Update(ctx context.Context, id string, doc cv.CV) error {
	f.updates++
	if f.failing {
		return errors.New("network unavailable")
	}
	return f.Store.Update(ctx, id, doc)
}

type stubImporter struct {
	partial *cv.Partial
	err     error
}

func (s stubImporter) Import(context.Context, string, string) (*cv.Partial, error) {
	return s.partial, s.err
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newEditor(t *testing.T, deps Deps) (*Editor, cv.CV) {
	t.Helper()

	if deps.Store == nil {
		deps.Store = store.NewMemory()
	}
	deps.Now = func() time.Time { return fixedNow }

	e := New("owner-1", deps)
	created, err := e.Create(context.Background(), &cv.Partial{
		Title:      "Backend",
		Experience: []cv.Experience{{ID: "e1", Role: "Dev", Company: "Acme"}},
		Languages:  []cv.Language{{ID: "l1", Name: "Español"}, {ID: "l2", Name: "Inglés"}},
	})
	require.NoError(t, err)
	return e, created
}

func TestChatAppliesAction(t *testing.T) {
	assistant := &stubAssistant{reply: ai.Reply{
		Message: "Listo",
		Action: &ai.Action{
			Type:    ai.ActionUpdate,
			Section: "experience",
			ID:      "e1",
			Data:    map[string]any{"role": "Senior Dev"},
		},
	}}
	backing := store.NewMemory()
	e, created := newEditor(t, Deps{Store: backing, Assistant: assistant})

	reply, outcome, err := e.Chat(context.Background(), created.ID, "sube mi cargo")
	require.NoError(t, err)
	require.Equal(t, "Listo", reply.Message)
	require.True(t, outcome.Applied)

	snapshot, err := e.Snapshot(created.ID)
	require.NoError(t, err)
	require.Equal(t, "Senior Dev", snapshot.Experience[0].Role)
	require.Equal(t, "Acme", snapshot.Experience[0].Company)

	stored, err := backing.List(context.Background(), "owner-1")
	require.NoError(t, err)
	require.Equal(t, snapshot, stored[0])

	require.Len(t, assistant.seen, 1)
	require.Equal(t, "Dev", assistant.seen[0].Experience[0].Role)
}

func TestChatAdvisoryDoesNotPersist(t *testing.T) {
	assistant := &stubAssistant{reply: ai.Reply{Message: "Agrega métricas."}}
	backing := &flakyStore{Store: store.NewMemory()}
	e, created := newEditor(t, Deps{Store: backing, Assistant: assistant})

	reply, outcome, err := e.Chat(context.Background(), created.ID, "¿consejos?")
	require.NoError(t, err)
	require.Equal(t, "Agrega métricas.", reply.Message)
	require.False(t, outcome.Applied)
	require.Zero(t, backing.updates)
}

func TestChatBlankMessageIsNotDispatched(t *testing.T) {
	assistant := &stubAssistant{reply: ai.Reply{Message: "no"}}
	e, created := newEditor(t, Deps{Assistant: assistant})

	reply, _, err := e.Chat(context.Background(), created.ID, "   ")
	require.NoError(t, err)
	require.Empty(t, reply.Message)
	require.Empty(t, assistant.messages)
}

func TestChatIgnoredActionLeavesStateUntouched(t *testing.T) {
	assistant := &stubAssistant{reply: ai.Reply{
		Message: "Hecho",
		Action:  &ai.Action{Type: ai.ActionUpdate, Section: "experience", ID: "e404", Data: map[string]any{"role": "CTO"}},
	}}
	backing := &flakyStore{Store: store.NewMemory()}
	e, created := newEditor(t, Deps{Store: backing, Assistant: assistant})

	_, outcome, err := e.Chat(context.Background(), created.ID, "hazme CTO")
	require.NoError(t, err)
	require.False(t, outcome.Applied)
	require.Equal(t, reconcile.ReasonUnknownID, outcome.Reason)
	require.Zero(t, backing.updates)

	snapshot, err := e.Snapshot(created.ID)
	require.NoError(t, err)
	require.Equal(t, created, snapshot)
}

func TestUpdateRevertsOnStoreFailure(t *testing.T) {
	backing := &flakyStore{Store: store.NewMemory(), failing: true}
	e, created := newEditor(t, Deps{Store: backing})

	_, err := e.Update(context.Background(), created.ID, func(doc cv.CV) cv.CV {
		doc.Title = "Cambiado"
		return doc
	})
	require.Error(t, err)

	snapshot, err := e.Snapshot(created.ID)
	require.NoError(t, err)
	require.Equal(t, created, snapshot)
}

type gatedStore struct {
	store.Store
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) Update(ctx context.Context, id string, doc cv.CV) error {
	close(g.entered)
	<-g.release
	return g.Store.Update(ctx, id, doc)
}

func TestSnapshotWaitsForPendingUpdate(t *testing.T) {
	gate := &gatedStore{Store: store.NewMemory(), entered: make(chan struct{}), release: make(chan struct{})}
	e, created := newEditor(t, Deps{Store: gate})

	updated := make(chan error, 1)
	go func() {
		_, err := e.Update(context.Background(), created.ID, func(doc cv.CV) cv.CV {
			doc.Title = "Backend Senior"
			return doc
		})
		updated <- err
	}()
	<-gate.entered

	snapshots := make(chan cv.CV, 1)
	go func() {
		doc, _ := e.Snapshot(created.ID)
		snapshots <- doc
	}()

	select {
	case doc := <-snapshots:
		t.Fatalf("snapshot returned while the store was busy: %q", doc.Title)
	case <-time.After(50 * time.Millisecond):
	}

	close(gate.release)
	require.NoError(t, <-updated)
	require.Equal(t, "Backend Senior", (<-snapshots).Title)
}

func TestUpdateStampsLastModified(t *testing.T) {
	e, created := newEditor(t, Deps{})

	later := fixedNow.Add(time.Hour)
	e.deps.Now = func() time.Time { return later }

	updated, err := e.Update(context.Background(), created.ID, func(doc cv.CV) cv.CV {
		doc.Title = "Otro"
		doc.ID = "tampered"
		return doc
	})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.True(t, updated.LastModified.Equal(later))
}

func TestManualEditsShareReconcilerRules(t *testing.T) {
	e, created := newEditor(t, Deps{})
	ctx := context.Background()

	outcome, err := e.AddItem(ctx, created.ID, cv.SectionCertifications, map[string]any{"name": "AWS", "issuer": "Amazon"})
	require.NoError(t, err)
	require.True(t, outcome.Applied)
	require.NotEmpty(t, outcome.ItemID)

	_, err = e.UpdateItem(ctx, created.ID, cv.SectionCertifications, outcome.ItemID, map[string]any{"date": "2022"})
	require.NoError(t, err)

	_, err = e.SetPersonal(ctx, created.ID, map[string]any{"firstName": "Ana"})
	require.NoError(t, err)

	removed, err := e.RemoveItem(ctx, created.ID, cv.SectionLanguages, "l2")
	require.NoError(t, err)
	require.True(t, removed.Applied)

	again, err := e.RemoveItem(ctx, created.ID, cv.SectionLanguages, "l2")
	require.NoError(t, err)
	require.False(t, again.Applied)

	snapshot, err := e.Snapshot(created.ID)
	require.NoError(t, err)
	require.Equal(t, "Ana", snapshot.Personal.FirstName)
	require.Equal(t, []cv.Certification{{ID: outcome.ItemID, Name: "AWS", Issuer: "Amazon", Date: "2022"}}, snapshot.Certifications)
	require.Equal(t, []string{"l1"}, cv.IDs(snapshot.Languages))
}

func TestImportCreatesCV(t *testing.T) {
	importer := stubImporter{partial: &cv.Partial{Title: "Importado", Skills: []cv.Skill{{ID: "s1", Name: "Go"}}}}
	e, _ := newEditor(t, Deps{Importer: importer})

	created, err := e.Import(context.Background(), "ZGF0YQ==", "application/pdf")
	require.NoError(t, err)
	require.Equal(t, "Importado", created.Title)
	require.NotNil(t, created.Projects)
	require.Len(t, e.List(), 2)
}

func TestImportWarnsWhenNothingWasRecovered(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	importer := stubImporter{partial: &cv.Partial{Title: "Escaneado"}}
	e, _ := newEditor(t, Deps{Importer: importer, Logger: zap.New(core)})

	created, err := e.Import(context.Background(), "ZGF0YQ==", "image/png")
	require.NoError(t, err)
	require.Equal(t, "Escaneado", created.Title)
	require.Len(t, e.List(), 2)

	warnings := observed.FilterMessage("imported document yielded no cv data, creating an empty cv").All()
	require.Len(t, warnings, 1)
	require.Equal(t, "image/png", warnings[0].ContextMap()["mime_type"])
}

func TestImportWithDataDoesNotWarn(t *testing.T) {
	core, observed := observer.New(zapcore.WarnLevel)
	importer := stubImporter{partial: &cv.Partial{Skills: []cv.Skill{{ID: "s1", Name: "Go"}}}}
	e, _ := newEditor(t, Deps{Importer: importer, Logger: zap.New(core)})

	_, err := e.Import(context.Background(), "ZGF0YQ==", "application/pdf")
	require.NoError(t, err)
	require.Zero(t, observed.Len())
}

func TestImportFailureCreatesNothing(t *testing.T) {
	importErr := errors.New("import failed: bad json")
	e, _ := newEditor(t, Deps{Importer: stubImporter{err: importErr}})

	_, err := e.Import(context.Background(), "ZGF0YQ==", "application/pdf")
	require.ErrorIs(t, err, importErr)
	require.Len(t, e.List(), 1)
}

func TestLoadAndDelete(t *testing.T) {
	backing := store.NewMemory()
	first, _ := newEditor(t, Deps{Store: backing})

	e := New("owner-1", Deps{Store: backing})
	require.NoError(t, e.Load(context.Background()))
	list := e.List()
	require.Len(t, list, 1)
	require.Equal(t, first.List(), list)

	require.NoError(t, e.Delete(context.Background(), list[0].ID))
	require.Empty(t, e.List())
	require.ErrorIs(t, e.Delete(context.Background(), list[0].ID), ErrUnknownCV)

	_, err := e.Snapshot(list[0].ID)
	require.ErrorIs(t, err, ErrUnknownCV)
}
