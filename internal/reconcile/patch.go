package reconcile

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/cv-assistant/internal/cv"
)

var errNotObject = errors.New("data is not an object")

// Patches mirror the section item types with every field optional. A nil
// field is left alone by merge; a set field overwrites the item value.

type personalPatch struct {
	FirstName      *string      `json:"firstName"`
	LastName       *string      `json:"lastName"`
	Email          *string      `json:"email"`
	Phone          *string      `json:"phone"`
	City           *string      `json:"city"`
	Country        *string      `json:"country"`
	LinkedIn       *string      `json:"linkedin"`
	Website        *string      `json:"website"`
	ProfileSummary *string      `json:"profileSummary"`
	PhotoURL       *string      `json:"photoUrl"`
	Design         *designPatch `json:"design"`
}

type designPatch struct {
	PrimaryColor *string `json:"primaryColor"`
	FontFamily   *string `json:"fontFamily"`
}

func (p personalPatch) merge(dst cv.Personal) cv.Personal {
	set(&dst.FirstName, p.FirstName)
	set(&dst.LastName, p.LastName)
	set(&dst.Email, p.Email)
	set(&dst.Phone, p.Phone)
	set(&dst.City, p.City)
	set(&dst.Country, p.Country)
	set(&dst.LinkedIn, p.LinkedIn)
	set(&dst.Website, p.Website)
	set(&dst.ProfileSummary, p.ProfileSummary)
	set(&dst.PhotoURL, p.PhotoURL)
	if p.Design != nil {
		// Always a fresh value; the snapshot's design stays untouched.
		design := cv.PersonalDesign{}
		if dst.Design != nil {
			design = *dst.Design
		}
		set(&design.PrimaryColor, p.Design.PrimaryColor)
		set(&design.FontFamily, p.Design.FontFamily)
		dst.Design = &design
	}
	return dst
}

// itemPatch is implemented by the list section patches.
type itemPatch[T cv.Item] interface {
	merge(dst T) T
	create(id string) T
	suppliedID() string
	// validate rejects set values outside the item's closed vocabularies.
	validate() error
}

var (
	errInvalidSkillType     = errors.New("invalid skill type")
	errInvalidLanguageLevel = errors.New("invalid language level")
)

type experiencePatch struct {
	ID           *string   `json:"id"`
	Role         *string   `json:"role"`
	Company      *string   `json:"company"`
	Location     *string   `json:"location"`
	StartDate    *string   `json:"startDate"`
	EndDate      *string   `json:"endDate"`
	Current      *bool     `json:"current"`
	Description  *string   `json:"description"`
	Achievements *[]string `json:"achievements"`
}

func (p experiencePatch) merge(dst cv.Experience) cv.Experience {
	set(&dst.Role, p.Role)
	set(&dst.Company, p.Company)
	set(&dst.Location, p.Location)
	set(&dst.StartDate, p.StartDate)
	set(&dst.EndDate, p.EndDate)
	set(&dst.Current, p.Current)
	set(&dst.Description, p.Description)
	if p.Achievements != nil {
		dst.Achievements = append([]string(nil), (*p.Achievements)...)
	}
	return dst
}

func (p experiencePatch) create(id string) cv.Experience {
	return p.merge(cv.Experience{ID: id})
}

func (p experiencePatch) suppliedID() string { return deref(p.ID) }

func (experiencePatch) validate() error { return nil }

type educationPatch struct {
	ID          *string `json:"id"`
	Degree      *string `json:"degree"`
	Institution *string `json:"institution"`
	Location    *string `json:"location"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	Description *string `json:"description"`
}

func (p educationPatch) merge(dst cv.Education) cv.Education {
	set(&dst.Degree, p.Degree)
	set(&dst.Institution, p.Institution)
	set(&dst.Location, p.Location)
	set(&dst.StartDate, p.StartDate)
	set(&dst.EndDate, p.EndDate)
	set(&dst.Description, p.Description)
	return dst
}

func (p educationPatch) create(id string) cv.Education {
	return p.merge(cv.Education{ID: id})
}

func (p educationPatch) suppliedID() string { return deref(p.ID) }

func (educationPatch) validate() error { return nil }

type skillPatch struct {
	ID   *string       `json:"id"`
	Name *string       `json:"name"`
	Type *cv.SkillType `json:"type"`
}

func (p skillPatch) merge(dst cv.Skill) cv.Skill {
	set(&dst.Name, p.Name)
	set(&dst.Type, p.Type)
	return dst
}

func (p skillPatch) create(id string) cv.Skill {
	return p.merge(cv.Skill{ID: id, Type: cv.SkillTechnical})
}

func (p skillPatch) suppliedID() string { return deref(p.ID) }

func (p skillPatch) validate() error {
	if p.Type != nil && !p.Type.Valid() {
		return fmt.Errorf("%w: %q", errInvalidSkillType, *p.Type)
	}
	return nil
}

type languagePatch struct {
	ID    *string           `json:"id"`
	Name  *string           `json:"name"`
	Level *cv.LanguageLevel `json:"level"`
}

func (p languagePatch) merge(dst cv.Language) cv.Language {
	set(&dst.Name, p.Name)
	set(&dst.Level, p.Level)
	return dst
}

func (p languagePatch) create(id string) cv.Language {
	return p.merge(cv.Language{ID: id, Level: cv.LevelIntermediate})
}

func (p languagePatch) suppliedID() string { return deref(p.ID) }

func (p languagePatch) validate() error {
	if p.Level != nil && !p.Level.Valid() {
		return fmt.Errorf("%w: %q", errInvalidLanguageLevel, *p.Level)
	}
	return nil
}

type certificationPatch struct {
	ID     *string `json:"id"`
	Name   *string `json:"name"`
	Issuer *string `json:"issuer"`
	Date   *string `json:"date"`
}

func (p certificationPatch) merge(dst cv.Certification) cv.Certification {
	set(&dst.Name, p.Name)
	set(&dst.Issuer, p.Issuer)
	set(&dst.Date, p.Date)
	return dst
}

func (p certificationPatch) create(id string) cv.Certification {
	return p.merge(cv.Certification{ID: id})
}

func (p certificationPatch) suppliedID() string { return deref(p.ID) }

func (certificationPatch) validate() error { return nil }

type projectPatch struct {
	ID          *string `json:"id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Link        *string `json:"link"`
}

func (p projectPatch) merge(dst cv.Project) cv.Project {
	set(&dst.Name, p.Name)
	set(&dst.Description, p.Description)
	set(&dst.Link, p.Link)
	return dst
}

func (p projectPatch) create(id string) cv.Project {
	return p.merge(cv.Project{ID: id})
}

func (p projectPatch) suppliedID() string { return deref(p.ID) }

func (projectPatch) validate() error { return nil }

// decodePatch decodes an action payload into a patch. Unknown keys and
// mistyped values are errors.
func decodePatch[P any](data any) (P, error) {
	var patch P

	obj, ok := data.(map[string]any)
	if !ok {
		return patch, errNotObject
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &patch,
		TagName:     "json",
		ErrorUnused: true,
	})
	if err != nil {
		return patch, fmt.Errorf("create decoder: %w", err)
	}

	if err := decoder.Decode(obj); err != nil {
		return patch, err
	}

	return patch, nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
