// Package profile holds the user profile gathered during the profiling
// dialogue and the keyword extractor that fills it.
package profile

import (
	"fmt"
	"strings"
)

// Profile is the structured picture of the user built up turn by turn.
// Fields are only ever set, never rolled back.
type Profile struct {
	FieldOfStudy      string   `json:"field_of_study"`
	EducationLevel    string   `json:"education_level"`
	GPA               float64  `json:"gpa"`
	Location          string   `json:"location"`
	Citizenship       string   `json:"citizenship"`
	FinancialNeed     string   `json:"financial_need"`
	Extracurriculars  []string `json:"extracurriculars"`
	ResearchInterests []string `json:"research_interests"`
	CareerGoals       string   `json:"career_goals"`
}

// Complete reports whether the four required fields are filled.
// Search cannot start before this returns true.
func (p Profile) Complete() bool {
	required := []string{p.FieldOfStudy, p.EducationLevel, p.Citizenship, p.Location}
	for _, f := range required {
		if strings.TrimSpace(f) == "" {
			return false
		}
	}
	return true
}

// SearchContext renders the profile as a flat text block for prompts.
func (p Profile) SearchContext() string {
	gpa := "Not specified"
	if p.GPA > 0 {
		gpa = fmt.Sprintf("%.2f", p.GPA)
	}
	interests := "Not specified"
	if len(p.ResearchInterests) > 0 {
		interests = strings.Join(p.ResearchInterests, ", ")
	}
	return fmt.Sprintf(
		"Field of Study: %s\nEducation Level: %s\nLocation: %s\nCitizenship: %s\nGPA: %s\nFinancial Need: %s\nResearch Interests: %s\nCareer Goals: %s",
		p.FieldOfStudy, p.EducationLevel, p.Location, p.Citizenship, gpa, p.FinancialNeed, interests, p.CareerGoals,
	)
}
