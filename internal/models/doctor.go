package models

import (
	"gorm.io/datatypes"
)

// Qualification is one entry of a doctor's credentials list.
type Qualification struct {
	Degree     string `json:"degree"`
	University string `json:"university"`
	Year       int    `json:"year"`
}

// Doctor wraps a User identity with the professional profile patients book
// against. Appointments reference the Doctor ID, not the underlying user.
type Doctor struct {
	BaseModel
	UserID         string                               `gorm:"size:36;uniqueIndex" json:"userId"`
	Specialization string                               `gorm:"size:50;index" json:"specialization"`
	Experience     int                                  `json:"experience"`
	Qualifications datatypes.JSONSlice[Qualification]   `json:"qualifications,omitempty"`
	Bio            string                               `gorm:"size:500" json:"bio,omitempty"`
	Fees           float64                              `json:"fees"`
	Rating         float64                              `gorm:"default:4.5" json:"rating"`
	IsVerified     bool                                 `gorm:"default:false" json:"isVerified"`

	// Relations
	User         User          `gorm:"foreignKey:UserID" json:"-"`
	Appointments []Appointment `gorm:"foreignKey:DoctorID" json:"-"`
}
