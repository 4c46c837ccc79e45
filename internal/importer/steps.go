package importer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/cv-assistant/internal/cv"
)

// Step is one shaping pass over an extracted partial CV.
type Step interface {
	Name() string
	Apply(ctx context.Context, p *cv.Partial) (Report, error)
}

// Report describes what a step did.
type Report struct {
	Items   int
	Changed int
	Dropped int
}

// Run executes the steps sequentially, logging a line per step.
func Run(ctx context.Context, logger *zap.Logger, steps []Step, p *cv.Partial) error {
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		info, err := step.Apply(ctx, p)
		if err != nil {
			return fmt.Errorf("%s: %w", step.Name(), err)
		}

		if logger != nil {
			logger.Debug("import step",
				zap.String("name", step.Name()),
				zap.Int("items", info.Items),
				zap.Int("changed", info.Changed),
				zap.Int("dropped", info.Dropped),
			)
		}
	}

	return nil
}

// DefaultSteps returns the shaping passes used by Import, in order.
func DefaultSteps() []Step {
	return []Step{
		NewTrim(),
		NewDropBlank(),
		NewFillIDs(),
		NewDedupeIDs(),
		NewNormalizeSkills(),
		NewNormalizeLanguages(),
		NewEmptySections(),
	}
}

func countItems(p *cv.Partial) int {
	return len(p.Experience) + len(p.Education) + len(p.Skills) +
		len(p.Languages) + len(p.Certifications) + len(p.Projects)
}

type trimStep struct{}

// NewTrim creates a step that strips surrounding whitespace from names and
// identifiers.
func NewTrim() Step { return trimStep{} }

func (trimStep) Name() string { return "trim" }

func (trimStep) Apply(_ context.Context, p *cv.Partial) (Report, error) {
	changed := 0
	trim := func(s *string) {
		if t := strings.TrimSpace(*s); t != *s {
			*s = t
			changed++
		}
	}

	trim(&p.Title)
	trim(&p.Personal.FirstName)
	trim(&p.Personal.LastName)
	trim(&p.Personal.Email)
	for i := range p.Experience {
		trim(&p.Experience[i].ID)
		trim(&p.Experience[i].Role)
		trim(&p.Experience[i].Company)
	}
	for i := range p.Education {
		trim(&p.Education[i].ID)
		trim(&p.Education[i].Degree)
		trim(&p.Education[i].Institution)
	}
	for i := range p.Skills {
		trim(&p.Skills[i].ID)
		trim(&p.Skills[i].Name)
	}
	for i := range p.Languages {
		trim(&p.Languages[i].ID)
		trim(&p.Languages[i].Name)
	}
	for i := range p.Certifications {
		trim(&p.Certifications[i].ID)
		trim(&p.Certifications[i].Name)
	}
	for i := range p.Projects {
		trim(&p.Projects[i].ID)
		trim(&p.Projects[i].Name)
	}

	return Report{Items: countItems(p), Changed: changed}, nil
}

type dropBlankStep struct{}

// NewDropBlank creates a step that removes list items carrying no content
// besides an identifier.
func NewDropBlank() Step { return dropBlankStep{} }

func (dropBlankStep) Name() string { return "drop_blank" }

func (dropBlankStep) Apply(_ context.Context, p *cv.Partial) (Report, error) {
	initial := countItems(p)

	p.Experience = keep(p.Experience, func(e cv.Experience) bool {
		return e.Role != "" || e.Company != "" || e.Description != "" || len(e.Achievements) > 0
	})
	p.Education = keep(p.Education, func(e cv.Education) bool {
		return e.Degree != "" || e.Institution != ""
	})
	p.Skills = keep(p.Skills, func(s cv.Skill) bool { return s.Name != "" })
	p.Languages = keep(p.Languages, func(l cv.Language) bool { return l.Name != "" })
	p.Certifications = keep(p.Certifications, func(c cv.Certification) bool { return c.Name != "" })
	p.Projects = keep(p.Projects, func(pr cv.Project) bool { return pr.Name != "" || pr.Description != "" })

	left := countItems(p)
	return Report{Items: left, Dropped: initial - left}, nil
}

func keep[T any](items []T, ok func(T) bool) []T {
	if items == nil {
		return nil
	}
	out := items[:0]
	for _, item := range items {
		if ok(item) {
			out = append(out, item)
		}
	}
	return out
}

type fillIDsStep struct{}

// NewFillIDs creates a step that assigns identifiers to items without one.
func NewFillIDs() Step { return fillIDsStep{} }

func (fillIDsStep) Name() string { return "fill_ids" }

func (fillIDsStep) Apply(_ context.Context, p *cv.Partial) (Report, error) {
	changed := 0
	fill := func(id *string) {
		if *id == "" {
			*id = cv.NewID()
			changed++
		}
	}

	for i := range p.Experience {
		fill(&p.Experience[i].ID)
	}
	for i := range p.Education {
		fill(&p.Education[i].ID)
	}
	for i := range p.Skills {
		fill(&p.Skills[i].ID)
	}
	for i := range p.Languages {
		fill(&p.Languages[i].ID)
	}
	for i := range p.Certifications {
		fill(&p.Certifications[i].ID)
	}
	for i := range p.Projects {
		fill(&p.Projects[i].ID)
	}

	return Report{Items: countItems(p), Changed: changed}, nil
}

type dedupeIDsStep struct{}

// NewDedupeIDs creates a step that gives a fresh identifier to every item
// repeating an identifier already used earlier in its section. Models
// copying the "exp-1" example from the prompt hit this often.
func NewDedupeIDs() Step { return dedupeIDsStep{} }

func (dedupeIDsStep) Name() string { return "dedupe_ids" }

func (dedupeIDsStep) Apply(_ context.Context, p *cv.Partial) (Report, error) {
	changed := 0
	section := func() func(*string) {
		seen := make(map[string]struct{})
		return func(id *string) {
			if _, dup := seen[*id]; dup {
				*id = cv.NewID()
				changed++
			}
			seen[*id] = struct{}{}
		}
	}

	dedupe := section()
	for i := range p.Experience {
		dedupe(&p.Experience[i].ID)
	}
	dedupe = section()
	for i := range p.Education {
		dedupe(&p.Education[i].ID)
	}
	dedupe = section()
	for i := range p.Skills {
		dedupe(&p.Skills[i].ID)
	}
	dedupe = section()
	for i := range p.Languages {
		dedupe(&p.Languages[i].ID)
	}
	dedupe = section()
	for i := range p.Certifications {
		dedupe(&p.Certifications[i].ID)
	}
	dedupe = section()
	for i := range p.Projects {
		dedupe(&p.Projects[i].ID)
	}

	return Report{Items: countItems(p), Changed: changed}, nil
}

type normalizeSkillsStep struct{}

// NewNormalizeSkills creates a step that maps free-form skill categories
// onto Technical or Soft. Unknown categories become Technical.
func NewNormalizeSkills() Step { return normalizeSkillsStep{} }

func (normalizeSkillsStep) Name() string { return "normalize_skills" }

var softSkillNames = map[string]struct{}{
	"soft":             {},
	"blanda":           {},
	"blandas":          {},
	"habilidad blanda": {},
	"interpersonal":    {},
}

func (normalizeSkillsStep) Apply(_ context.Context, p *cv.Partial) (Report, error) {
	changed := 0
	for i, skill := range p.Skills {
		if skill.Type.Valid() {
			continue
		}

		next := cv.SkillTechnical
		if _, ok := softSkillNames[strings.ToLower(strings.TrimSpace(string(skill.Type)))]; ok {
			next = cv.SkillSoft
		}
		p.Skills[i].Type = next
		changed++
	}

	return Report{Items: len(p.Skills), Changed: changed}, nil
}

type normalizeLanguagesStep struct{}

// NewNormalizeLanguages creates a step that maps proficiency labels onto
// the four-level scale. Unknown labels become Básico.
func NewNormalizeLanguages() Step { return normalizeLanguagesStep{} }

func (normalizeLanguagesStep) Name() string { return "normalize_languages" }

var languageLevelNames = map[string]cv.LanguageLevel{
	"básico":         cv.LevelBasic,
	"basico":         cv.LevelBasic,
	"basic":          cv.LevelBasic,
	"elemental":      cv.LevelBasic,
	"a1":             cv.LevelBasic,
	"a2":             cv.LevelBasic,
	"intermedio":     cv.LevelIntermediate,
	"intermediate":   cv.LevelIntermediate,
	"b1":             cv.LevelIntermediate,
	"b2":             cv.LevelIntermediate,
	"avanzado":       cv.LevelAdvanced,
	"advanced":       cv.LevelAdvanced,
	"fluido":         cv.LevelAdvanced,
	"fluent":         cv.LevelAdvanced,
	"c1":             cv.LevelAdvanced,
	"c2":             cv.LevelAdvanced,
	"nativo":         cv.LevelNative,
	"native":         cv.LevelNative,
	"lengua materna": cv.LevelNative,
}

func (normalizeLanguagesStep) Apply(_ context.Context, p *cv.Partial) (Report, error) {
	changed := 0
	for i, lang := range p.Languages {
		if lang.Level.Valid() {
			continue
		}

		next, ok := languageLevelNames[strings.ToLower(strings.TrimSpace(string(lang.Level)))]
		if !ok {
			next = cv.LevelBasic
		}
		p.Languages[i].Level = next
		changed++
	}

	return Report{Items: len(p.Languages), Changed: changed}, nil
}

type emptySectionsStep struct{}

// NewEmptySections creates a step that replaces absent sections with empty
// lists so the partial serialises with every key.
func NewEmptySections() Step { return emptySectionsStep{} }

func (emptySectionsStep) Name() string { return "empty_sections" }

func (emptySectionsStep) Apply(_ context.Context, p *cv.Partial) (Report, error) {
	changed := 0
	ensure := func(isNil bool) bool {
		if isNil {
			changed++
		}
		return isNil
	}

	if ensure(p.Experience == nil) {
		p.Experience = []cv.Experience{}
	}
	if ensure(p.Education == nil) {
		p.Education = []cv.Education{}
	}
	if ensure(p.Skills == nil) {
		p.Skills = []cv.Skill{}
	}
	if ensure(p.Languages == nil) {
		p.Languages = []cv.Language{}
	}
	if ensure(p.Certifications == nil) {
		p.Certifications = []cv.Certification{}
	}
	if ensure(p.Projects == nil) {
		p.Projects = []cv.Project{}
	}

	return Report{Items: countItems(p), Changed: changed}, nil
}
