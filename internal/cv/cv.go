package cv

import (
	"time"

	"github.com/google/uuid"
)

// TemplateType selects the visual template a CV is rendered with.
type TemplateType string

const (
	TemplateATS     TemplateType = "ATS"
	TemplateModern  TemplateType = "MODERN"
	TemplateClassic TemplateType = "CLASSIC"
	TemplateHarvard TemplateType = "HARVARD"
	TemplateCustom  TemplateType = "CUSTOM"
)

// FormalityLevel is the tone the CV content is written in.
type FormalityLevel string

const (
	FormalityVeryFormal   FormalityLevel = "VERY_FORMAL"
	FormalityProfessional FormalityLevel = "PROFESSIONAL"
	FormalityCreative     FormalityLevel = "CREATIVE"
)

const (
	DefaultTitle    = "Nuevo Currículum"
	DefaultLanguage = "Español (Perú)"
)

// CV is the root aggregate persisted per owner.
type CV struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	LastModified   time.Time       `json:"lastModified"`
	TemplateType   TemplateType    `json:"templateType"`
	Formality      FormalityLevel  `json:"formality"`
	Language       string          `json:"language"`
	CustomTemplate *TemplateConfig `json:"customTemplate,omitempty"`

	Personal       Personal        `json:"personal"`
	Experience     []Experience    `json:"experience"`
	Education      []Education     `json:"education"`
	Skills         []Skill         `json:"skills"`
	Languages      []Language      `json:"languages"`
	Certifications []Certification `json:"certifications"`
	Projects       []Project       `json:"projects"`
}

// TemplateConfig is the layout and styling of a user-built template.
type TemplateConfig struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Author   string         `json:"author,omitempty"`
	IsPublic bool           `json:"isPublic"`
	Styles   TemplateStyles `json:"styles"`
	Layout   TemplateLayout `json:"layout"`
}

type TemplateStyles struct {
	PrimaryColor    string `json:"primaryColor"`
	BackgroundColor string `json:"backgroundColor"`
	FontFamily      string `json:"fontFamily"`
	BodyColor       string `json:"bodyColor"`
	TitleColor      string `json:"titleColor"`
}

type TemplateLayout struct {
	Type            string   `json:"type"`
	SidebarWidth    string   `json:"sidebarWidth,omitempty"`
	SidebarSections []string `json:"sidebarSections,omitempty"`
	MainSections    []string `json:"mainSections,omitempty"`
}

// Skeleton returns an empty CV with the default settings.
func Skeleton() CV {
	return CV{
		TemplateType:   TemplateATS,
		Formality:      FormalityProfessional,
		Language:       DefaultLanguage,
		Experience:     []Experience{},
		Education:      []Education{},
		Skills:         []Skill{},
		Languages:      []Language{},
		Certifications: []Certification{},
		Projects:       []Project{},
	}
}

// NewID returns a fresh identifier for a CV or a section item.
func NewID() string {
	return uuid.NewString()
}

// Clone returns a deep copy of the CV. Reapplying a clone taken before a
// mutation restores the prior state exactly.
func (c CV) Clone() CV {
	out := c
	if c.CustomTemplate != nil {
		tpl := *c.CustomTemplate
		tpl.Layout.SidebarSections = cloneStrings(c.CustomTemplate.Layout.SidebarSections)
		tpl.Layout.MainSections = cloneStrings(c.CustomTemplate.Layout.MainSections)
		out.CustomTemplate = &tpl
	}

	out.Personal = c.Personal.clone()

	out.Experience = make([]Experience, len(c.Experience))
	for i, exp := range c.Experience {
		exp.Achievements = cloneStrings(exp.Achievements)
		out.Experience[i] = exp
	}
	out.Education = append(make([]Education, 0, len(c.Education)), c.Education...)
	out.Skills = append(make([]Skill, 0, len(c.Skills)), c.Skills...)
	out.Languages = append(make([]Language, 0, len(c.Languages)), c.Languages...)
	out.Certifications = append(make([]Certification, 0, len(c.Certifications)), c.Certifications...)
	out.Projects = append(make([]Project, 0, len(c.Projects)), c.Projects...)

	return out
}

// Touch stamps the last-modified time.
func (c *CV) Touch(now time.Time) {
	c.LastModified = now.UTC()
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}
