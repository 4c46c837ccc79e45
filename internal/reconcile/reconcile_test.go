package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/cv-assistant/internal/ai"
	"github.com/spigell/cv-assistant/internal/cv"
	"github.com/spigell/cv-assistant/internal/metrics"
)

func fixture() cv.CV {
	doc := cv.Skeleton()
	doc.ID = "cv-1"
	doc.Title = "Backend"
	doc.Personal = cv.Personal{FirstName: "Ana", LastName: "Quispe", Email: "ana@example.com"}
	doc.Experience = []cv.Experience{
		{ID: "e1", Role: "Dev", Company: "Acme", StartDate: "2020", Current: true, Achievements: []string{"migró a Go"}},
		{ID: "e2", Role: "Intern", Company: "Beta"},
	}
	doc.Languages = []cv.Language{
		{ID: "l1", Name: "Español", Level: cv.LevelNative},
		{ID: "l2", Name: "Inglés", Level: cv.LevelAdvanced},
	}
	doc.Skills = []cv.Skill{{ID: "s1", Name: "Go", Type: cv.SkillTechnical}}
	return doc
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestApplyUpdateExperience(t *testing.T) {
	r := New(zap.NewNop())
	before := fixture()

	got, outcome := r.Apply(before, ai.Action{
		Type:    ai.ActionUpdate,
		Section: "experience",
		ID:      "e1",
		Data:    map[string]any{"role": "Senior Dev"},
	})

	require.True(t, outcome.Applied)
	require.Equal(t, "e1", outcome.ItemID)

	want := before.Experience[0]
	want.Role = "Senior Dev"
	require.Equal(t, want, got.Experience[0])
	require.Equal(t, before.Experience[1], got.Experience[1])

	// Input untouched.
	require.Equal(t, "Dev", before.Experience[0].Role)
}

func TestApplyUpdateLeavesOtherFieldsUnchanged(t *testing.T) {
	r := New(nil)
	before := fixture()

	got, outcome := r.Apply(before, ai.Action{
		Type:    ai.ActionUpdate,
		Section: "experience",
		ID:      "e1",
		Data:    map[string]any{"id": "ignored", "company": "Acme Corp"},
	})
	require.True(t, outcome.Applied)

	expected := before.Clone()
	expected.Experience[0].Company = "Acme Corp"
	require.Equal(t, mustJSON(t, expected), mustJSON(t, got))
}

func TestApplyDeleteIsIdempotent(t *testing.T) {
	r := New(nil)
	action := ai.Action{Type: ai.ActionDelete, Section: "languages", ID: "l2"}

	once, outcome := r.Apply(fixture(), action)
	require.True(t, outcome.Applied)
	require.Equal(t, []cv.Language{{ID: "l1", Name: "Español", Level: cv.LevelNative}}, once.Languages)

	twice, outcome := r.Apply(once, action)
	require.False(t, outcome.Applied)
	require.Equal(t, ReasonUnknownID, outcome.Reason)
	require.Equal(t, mustJSON(t, once), mustJSON(t, twice))
}

func TestApplyCreateCertificationGeneratesID(t *testing.T) {
	r := New(nil)
	before := fixture()

	got, outcome := r.Apply(before, ai.Action{
		Type:    ai.ActionCreate,
		Section: "certifications",
		Data:    map[string]any{"name": "AWS", "issuer": "Amazon"},
	})

	require.True(t, outcome.Applied)
	require.Len(t, got.Certifications, len(before.Certifications)+1)

	created := got.Certifications[len(got.Certifications)-1]
	require.NotEmpty(t, created.ID)
	require.Equal(t, outcome.ItemID, created.ID)
	require.Equal(t, "AWS", created.Name)
	require.Equal(t, "Amazon", created.Issuer)
}

func TestApplyCreateKeepsSuppliedID(t *testing.T) {
	r := New(nil)

	got, outcome := r.Apply(fixture(), ai.Action{
		Type:    ai.ActionCreate,
		Section: "projects",
		Data:    map[string]any{"id": "p1", "name": "CLI"},
	})

	require.True(t, outcome.Applied)
	require.Equal(t, []cv.Project{{ID: "p1", Name: "CLI"}}, got.Projects)
}

func TestApplyCreateReplacesDuplicateID(t *testing.T) {
	r := New(nil)

	got, outcome := r.Apply(fixture(), ai.Action{
		Type:    ai.ActionCreate,
		Section: "skills",
		Data:    map[string]any{"id": "s1", "name": "Liderazgo", "type": "Soft"},
	})

	require.True(t, outcome.Applied)
	require.NotEqual(t, "s1", outcome.ItemID)
	require.Len(t, got.Skills, 2)
	require.Equal(t, cv.SkillSoft, got.Skills[1].Type)
}

func TestApplyRepeatedCreatesKeepIDsUnique(t *testing.T) {
	r := New(nil)
	doc := fixture()

	for i := 0; i < 25; i++ {
		var outcome Outcome
		doc, outcome = r.Apply(doc, ai.Action{
			Type:    ai.ActionCreate,
			Section: "education",
			Data:    map[string]any{"degree": "Curso"},
		})
		require.True(t, outcome.Applied)
	}

	seen := make(map[string]struct{}, len(doc.Education))
	for _, item := range doc.Education {
		require.NotEmpty(t, item.ID)
		_, dup := seen[item.ID]
		require.False(t, dup, "duplicate id %s", item.ID)
		seen[item.ID] = struct{}{}
	}
	require.Len(t, seen, 25)
}

func TestApplyUpdatePersonalMerges(t *testing.T) {
	r := New(nil)
	before := fixture()

	got, outcome := r.Apply(before, ai.Action{
		Type:    ai.ActionUpdate,
		Section: "personal",
		Data:    map[string]any{"profileSummary": "Backend engineer", "city": "Lima"},
	})

	require.True(t, outcome.Applied)
	require.Equal(t, "Backend engineer", got.Personal.ProfileSummary)
	require.Equal(t, "Lima", got.Personal.City)
	require.Equal(t, "Ana", got.Personal.FirstName)
	require.Equal(t, before.Personal.Email, got.Personal.Email)
	require.Nil(t, got.Personal.Design)

	styled, outcome := r.Apply(got, ai.Action{
		Type:    ai.ActionUpdate,
		Section: "personal",
		Data:    map[string]any{"design": map[string]any{"primaryColor": "#1e40af"}},
	})

	require.True(t, outcome.Applied)
	require.NotNil(t, styled.Personal.Design)
	require.Equal(t, "#1e40af", styled.Personal.Design.PrimaryColor)
	require.Empty(t, styled.Personal.Design.FontFamily)
	require.Equal(t, "Backend engineer", styled.Personal.ProfileSummary)

	restyled, outcome := r.Apply(styled, ai.Action{
		Type:    ai.ActionUpdate,
		Section: "personal",
		Data:    map[string]any{"design": map[string]any{"fontFamily": "Georgia"}},
	})

	require.True(t, outcome.Applied)
	require.Equal(t, cv.PersonalDesign{PrimaryColor: "#1e40af", FontFamily: "Georgia"}, *restyled.Personal.Design)
	require.Empty(t, styled.Personal.Design.FontFamily, "earlier snapshot shares the design")
}

func TestApplyNoOps(t *testing.T) {
	tests := []struct {
		name   string
		action ai.Action
		reason Reason
	}{
		{
			name:   "unknown id",
			action: ai.Action{Type: ai.ActionUpdate, Section: "experience", ID: "e9", Data: map[string]any{"role": "CTO"}},
			reason: ReasonUnknownID,
		},
		{
			name:   "update without id",
			action: ai.Action{Type: ai.ActionUpdate, Section: "experience", Data: map[string]any{"role": "CTO"}},
			reason: ReasonMissingID,
		},
		{
			name:   "delete without id",
			action: ai.Action{Type: ai.ActionDelete, Section: "skills"},
			reason: ReasonMissingID,
		},
		{
			name:   "create personal",
			action: ai.Action{Type: ai.ActionCreate, Section: "personal", Data: map[string]any{"firstName": "X"}},
			reason: ReasonPersonalSingular,
		},
		{
			name:   "delete personal",
			action: ai.Action{Type: ai.ActionDelete, Section: "personal", ID: "x"},
			reason: ReasonPersonalSingular,
		},
		{
			name:   "unknown section",
			action: ai.Action{Type: ai.ActionCreate, Section: "hobbies", Data: map[string]any{"name": "chess"}},
			reason: ReasonUnknownSection,
		},
		{
			name:   "unknown type",
			action: ai.Action{Type: "upsert", Section: "skills", ID: "s1"},
			reason: ReasonUnknownType,
		},
		{
			name:   "data is a string",
			action: ai.Action{Type: ai.ActionUpdate, Section: "experience", ID: "e1", Data: "Senior Dev"},
			reason: ReasonMalformedData,
		},
		{
			name:   "data missing",
			action: ai.Action{Type: ai.ActionCreate, Section: "projects"},
			reason: ReasonMalformedData,
		},
		{
			name:   "unknown field",
			action: ai.Action{Type: ai.ActionUpdate, Section: "experience", ID: "e1", Data: map[string]any{"salary": "9000"}},
			reason: ReasonMalformedData,
		},
		{
			name:   "mistyped field",
			action: ai.Action{Type: ai.ActionUpdate, Section: "experience", ID: "e1", Data: map[string]any{"current": "yes"}},
			reason: ReasonMalformedData,
		},
		{
			name:   "create skill with unknown type",
			action: ai.Action{Type: ai.ActionCreate, Section: "skills", Data: map[string]any{"name": "Go", "type": "Hard"}},
			reason: ReasonMalformedData,
		},
		{
			name:   "update skill with unknown type",
			action: ai.Action{Type: ai.ActionUpdate, Section: "skills", ID: "s1", Data: map[string]any{"type": "technical"}},
			reason: ReasonMalformedData,
		},
		{
			name:   "create language with unknown level",
			action: ai.Action{Type: ai.ActionCreate, Section: "languages", Data: map[string]any{"name": "Francés", "level": "Fluent"}},
			reason: ReasonMalformedData,
		},
		{
			name:   "update language with unknown level",
			action: ai.Action{Type: ai.ActionUpdate, Section: "languages", ID: "l2", Data: map[string]any{"level": "C1"}},
			reason: ReasonMalformedData,
		},
		{
			name:   "unknown design field",
			action: ai.Action{Type: ai.ActionUpdate, Section: "personal", Data: map[string]any{"design": map[string]any{"logo": "x.png"}}},
			reason: ReasonMalformedData,
		},
	}

	r := New(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := fixture()
			expected := mustJSON(t, before)

			got, outcome := r.Apply(before, tt.action)

			require.False(t, outcome.Applied)
			require.Equal(t, tt.reason, outcome.Reason)
			require.Equal(t, expected, mustJSON(t, got))
			require.Equal(t, expected, mustJSON(t, before))
		})
	}
}

func TestApplyReplacesAchievements(t *testing.T) {
	r := New(nil)

	got, outcome := r.Apply(fixture(), ai.Action{
		Type:    ai.ActionUpdate,
		Section: "experience",
		ID:      "e1",
		Data:    map[string]any{"achievements": []any{"a", "b"}},
	})
	require.True(t, outcome.Applied)
	require.Equal(t, []string{"a", "b"}, got.Experience[0].Achievements)
	require.True(t, got.Experience[0].Current)
}

func TestApplyLogsIgnoredActions(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	r := New(zap.New(core))

	r.Apply(fixture(), ai.Action{Type: ai.ActionUpdate, Section: "experience", ID: "e9", Data: map[string]any{}})
	r.Apply(fixture(), ai.Action{Type: ai.ActionCreate, Section: "hobbies"})

	entries := observed.FilterMessage("action ignored").All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	require.Equal(t, "cv-1", first["cv_id"])
	require.Equal(t, "e9", first["item_id"])
	require.Equal(t, string(ReasonUnknownID), first["reason"])
	require.Equal(t, zapcore.DebugLevel, entries[0].Level)

	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
}

func TestApplyCountsOutcomes(t *testing.T) {
	r := New(nil)

	applied := metrics.ActionsApplied.WithLabelValues("delete", "skills", "applied")
	ignored := metrics.ActionsApplied.WithLabelValues("delete", "skills", "ignored")
	bogus := metrics.ActionsApplied.WithLabelValues("unknown", "unknown", "ignored")

	appliedBefore := testutil.ToFloat64(applied)
	ignoredBefore := testutil.ToFloat64(ignored)
	bogusBefore := testutil.ToFloat64(bogus)

	doc, _ := r.Apply(fixture(), ai.Action{Type: ai.ActionDelete, Section: "skills", ID: "s1"})
	r.Apply(doc, ai.Action{Type: ai.ActionDelete, Section: "skills", ID: "s1"})
	r.Apply(doc, ai.Action{Type: "rename", Section: "hobbies", ID: "h1"})

	require.Equal(t, appliedBefore+1, testutil.ToFloat64(applied))
	require.Equal(t, ignoredBefore+1, testutil.ToFloat64(ignored))
	require.Equal(t, bogusBefore+1, testutil.ToFloat64(bogus))
}
