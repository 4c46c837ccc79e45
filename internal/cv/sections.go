package cv

import (
	"fmt"
	"strings"
)

// Section names one of the seven mutable parts of a CV.
type Section string

const (
	SectionPersonal       Section = "personal"
	SectionExperience     Section = "experience"
	SectionEducation      Section = "education"
	SectionSkills         Section = "skills"
	SectionLanguages      Section = "languages"
	SectionCertifications Section = "certifications"
	SectionProjects       Section = "projects"
)

// Sections lists every section in display order.
var Sections = []Section{
	SectionPersonal,
	SectionExperience,
	SectionEducation,
	SectionSkills,
	SectionLanguages,
	SectionCertifications,
	SectionProjects,
}

// ParseSection resolves a section name. Matching is exact apart from
// surrounding whitespace.
func ParseSection(name string) (Section, error) {
	s := Section(strings.TrimSpace(name))
	for _, known := range Sections {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown section %q", name)
}

// IsList reports whether the section is an ordered collection of items.
func (s Section) IsList() bool {
	switch s {
	case SectionExperience, SectionEducation, SectionSkills, SectionLanguages, SectionCertifications, SectionProjects:
		return true
	default:
		return false
	}
}

// Personal is the singleton contact and profile block.
type Personal struct {
	FirstName      string          `json:"firstName"`
	LastName       string          `json:"lastName"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	City           string          `json:"city"`
	Country        string          `json:"country"`
	LinkedIn       string          `json:"linkedin"`
	Website        string          `json:"website"`
	ProfileSummary string          `json:"profileSummary"`
	PhotoURL       string          `json:"photoUrl,omitempty"`
	Design         *PersonalDesign `json:"design,omitempty"`
}

// PersonalDesign overrides template styling for a single CV.
type PersonalDesign struct {
	PrimaryColor string `json:"primaryColor,omitempty"`
	FontFamily   string `json:"fontFamily,omitempty"`
}

func (p Personal) clone() Personal {
	if p.Design != nil {
		design := *p.Design
		p.Design = &design
	}
	return p
}

// FullName joins first and last name.
func (p Personal) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Experience struct {
	ID           string   `json:"id"`
	Role         string   `json:"role"`
	Company      string   `json:"company"`
	Location     string   `json:"location"`
	StartDate    string   `json:"startDate"`
	EndDate      string   `json:"endDate"`
	Current      bool     `json:"current"`
	Description  string   `json:"description"`
	Achievements []string `json:"achievements,omitempty"`
}

// PresentLabel is shown instead of an end date for a current position.
const PresentLabel = "Presente"

// DisplayEnd returns the end period to show. A current position always
// reads as present, whatever EndDate holds.
func (e Experience) DisplayEnd() string {
	if e.Current {
		return PresentLabel
	}
	return e.EndDate
}

type Education struct {
	ID          string `json:"id"`
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Location    string `json:"location"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description,omitempty"`
}

// SkillType is the category tag of a skill.
type SkillType string

const (
	SkillTechnical SkillType = "Technical"
	SkillSoft      SkillType = "Soft"
)

// Valid reports whether t is a known category.
func (t SkillType) Valid() bool {
	return t == SkillTechnical || t == SkillSoft
}

type Skill struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Type SkillType `json:"type"`
}

// LanguageLevel is an ordered proficiency scale.
type LanguageLevel string

const (
	LevelBasic        LanguageLevel = "Básico"
	LevelIntermediate LanguageLevel = "Intermedio"
	LevelAdvanced     LanguageLevel = "Avanzado"
	LevelNative       LanguageLevel = "Nativo"
)

// LanguageLevels is the scale from lowest to highest.
var LanguageLevels = []LanguageLevel{LevelBasic, LevelIntermediate, LevelAdvanced, LevelNative}

// Valid reports whether l is on the scale.
func (l LanguageLevel) Valid() bool {
	for _, known := range LanguageLevels {
		if l == known {
			return true
		}
	}
	return false
}

// Percent is the proportional indicator drawn next to a language.
// Anything below Intermedio, including unknown values, reads as 30.
func (l LanguageLevel) Percent() int {
	switch l {
	case LevelNative:
		return 100
	case LevelAdvanced:
		return 85
	case LevelIntermediate:
		return 60
	default:
		return 30
	}
}

type Language struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Level LanguageLevel `json:"level"`
}

type Certification struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Issuer string `json:"issuer"`
	// Date is free text ("2022", "marzo 2021") and is never parsed.
	Date string `json:"date"`
}

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Link        string `json:"link,omitempty"`
}

func (e Experience) ItemID() string    { return e.ID }
func (e Education) ItemID() string     { return e.ID }
func (s Skill) ItemID() string         { return s.ID }
func (l Language) ItemID() string      { return l.ID }
func (c Certification) ItemID() string { return c.ID }
func (p Project) ItemID() string       { return p.ID }
