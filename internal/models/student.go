package models

import "time"

// Student represents a candidate profile. ResumeURL points at the stored
// resume artifact used when a generation request omits resume input.
type Student struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"size:255;not null" json:"name"`
	Email          string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	ResumeURL      string    `gorm:"size:1024" json:"resume_url"`
	ResumeFileName string    `gorm:"size:255" json:"resume_file_name"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasResume reports whether the profile references a stored resume.
func (s Student) HasResume() bool {
	return s.ResumeURL != ""
}
