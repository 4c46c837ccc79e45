// Package reconcile applies assistant actions to a CV.
//
// Apply is the only place model output turns into state. It never mutates
// its input and never fails: anything it cannot resolve exactly is a no-op
// reported through Outcome. Manual edits use the same entry point, so both
// origins share one set of mutation rules.
package reconcile

import (
	"go.uber.org/zap"

	"github.com/spigell/cv-assistant/internal/ai"
	"github.com/spigell/cv-assistant/internal/cv"
	"github.com/spigell/cv-assistant/internal/logger"
	"github.com/spigell/cv-assistant/internal/metrics"
)

// Reason explains why an action was not applied.
type Reason string

const (
	ReasonUnknownType      Reason = "unknown action type"
	ReasonUnknownSection   Reason = "unknown section"
	ReasonPersonalSingular Reason = "personal section only supports update"
	ReasonMissingID        Reason = "action requires an item id"
	ReasonUnknownID        Reason = "no item with this id"
	ReasonMalformedData    Reason = "malformed data"
)

// Outcome reports what Apply did.
type Outcome struct {
	Applied bool
	// ItemID is the affected item, including the generated id on create.
	ItemID string
	Reason Reason
	// Err carries the decode error for ReasonMalformedData.
	Err error
}

func applied(id string) Outcome {
	return Outcome{Applied: true, ItemID: id}
}

func ignored(reason Reason, id string, err error) Outcome {
	return Outcome{ItemID: id, Reason: reason, Err: err}
}

type Reconciler struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{logger: logger}
}

// Apply returns the CV with the action applied. On a no-op the snapshot is
// returned as it was given.
func (r *Reconciler) Apply(snapshot cv.CV, action ai.Action) (cv.CV, Outcome) {
	next, outcome := apply(snapshot, action)
	r.report(snapshot.ID, action, outcome)
	if !outcome.Applied {
		return snapshot, outcome
	}
	return next, outcome
}

func apply(snapshot cv.CV, action ai.Action) (cv.CV, Outcome) {
	switch action.Type {
	case ai.ActionCreate, ai.ActionUpdate, ai.ActionDelete:
	default:
		return snapshot, ignored(ReasonUnknownType, action.ID, nil)
	}

	section, err := cv.ParseSection(action.Section)
	if err != nil {
		return snapshot, ignored(ReasonUnknownSection, action.ID, nil)
	}

	out := snapshot.Clone()
	var outcome Outcome

	switch section {
	case cv.SectionPersonal:
		out.Personal, outcome = applyPersonal(out.Personal, action)
	case cv.SectionExperience:
		out.Experience, outcome = applyList[cv.Experience, experiencePatch](out.Experience, action)
	case cv.SectionEducation:
		out.Education, outcome = applyList[cv.Education, educationPatch](out.Education, action)
	case cv.SectionSkills:
		out.Skills, outcome = applyList[cv.Skill, skillPatch](out.Skills, action)
	case cv.SectionLanguages:
		out.Languages, outcome = applyList[cv.Language, languagePatch](out.Languages, action)
	case cv.SectionCertifications:
		out.Certifications, outcome = applyList[cv.Certification, certificationPatch](out.Certifications, action)
	case cv.SectionProjects:
		out.Projects, outcome = applyList[cv.Project, projectPatch](out.Projects, action)
	}

	return out, outcome
}

func applyPersonal(personal cv.Personal, action ai.Action) (cv.Personal, Outcome) {
	if action.Type != ai.ActionUpdate {
		return personal, ignored(ReasonPersonalSingular, action.ID, nil)
	}

	patch, err := decodePatch[personalPatch](action.Data)
	if err != nil {
		return personal, ignored(ReasonMalformedData, "", err)
	}

	return patch.merge(personal), applied("")
}

func applyList[T cv.Item, P itemPatch[T]](items []T, action ai.Action) ([]T, Outcome) {
	switch action.Type {
	case ai.ActionCreate:
		patch, err := decodeItemPatch[T, P](action.Data)
		if err != nil {
			return items, ignored(ReasonMalformedData, action.ID, err)
		}

		id := patch.suppliedID()
		if id == "" {
			id = action.ID
		}
		if id == "" || cv.Index(items, id) >= 0 {
			id = cv.NewID()
		}

		return cv.Append(items, patch.create(id)), applied(id)

	case ai.ActionUpdate:
		if action.ID == "" {
			return items, ignored(ReasonMissingID, "", nil)
		}
		if cv.Index(items, action.ID) < 0 {
			return items, ignored(ReasonUnknownID, action.ID, nil)
		}

		patch, err := decodeItemPatch[T, P](action.Data)
		if err != nil {
			return items, ignored(ReasonMalformedData, action.ID, err)
		}

		next, _ := cv.Replace(items, action.ID, patch.merge)
		return next, applied(action.ID)

	default:
		if action.ID == "" {
			return items, ignored(ReasonMissingID, "", nil)
		}

		next, ok := cv.Remove(items, action.ID)
		if !ok {
			return items, ignored(ReasonUnknownID, action.ID, nil)
		}
		return next, applied(action.ID)
	}
}

func decodeItemPatch[T cv.Item, P itemPatch[T]](data any) (P, error) {
	patch, err := decodePatch[P](data)
	if err != nil {
		return patch, err
	}
	return patch, patch.validate()
}

func (r *Reconciler) report(cvID string, action ai.Action, outcome Outcome) {
	typ, section := metricLabels(action)

	result := "applied"
	if !outcome.Applied {
		result = "ignored"
	}
	metrics.ActionsApplied.WithLabelValues(typ, section, result).Inc()

	fields := logger.ActionFields(cvID, string(action.Type), action.Section, outcome.ItemID)

	switch {
	case outcome.Applied:
		r.logger.Debug("action applied", fields...)
	case outcome.Reason == ReasonUnknownID:
		// Usually a hallucinated id; nothing was touched.
		r.logger.Debug("action ignored", append(fields, zap.String("reason", string(outcome.Reason)))...)
	default:
		if outcome.Err != nil {
			fields = append(fields, zap.Error(outcome.Err))
		}
		r.logger.Warn("action ignored", append(fields, zap.String("reason", string(outcome.Reason)))...)
	}
}

// metricLabels keeps label values bounded whatever the model sends.
func metricLabels(action ai.Action) (string, string) {
	typ := "unknown"
	switch action.Type {
	case ai.ActionCreate, ai.ActionUpdate, ai.ActionDelete:
		typ = string(action.Type)
	}

	section := "unknown"
	if s, err := cv.ParseSection(action.Section); err == nil {
		section = string(s)
	}

	return typ, section
}
