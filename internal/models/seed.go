package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SeedDemoData populates an empty development database with one doctor and
// one patient so the API is usable right after the first start. It is a no-op
// whenever any user already exists.
func SeedDemoData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	doctorUser := User{
		Email: "dr.sharma@medibook.local",
		Name:  "Dr. Anita Sharma",
		Role:  RoleDoctor,
	}
	if err := doctorUser.SetPassword("doctor123"); err != nil {
		return err
	}
	patient := User{
		Email: "patient@medibook.local",
		Name:  "Sam Patel",
		Role:  RolePatient,
	}
	if err := patient.SetPassword("patient123"); err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doctorUser).Error; err != nil {
			return err
		}
		if err := tx.Create(&patient).Error; err != nil {
			return err
		}
		doctor := Doctor{
			UserID:         doctorUser.ID,
			Specialization: "General Medicine",
			Experience:     8,
			Qualifications: datatypes.JSONSlice[Qualification]{
				{Degree: "MBBS", University: "AIIMS Delhi", Year: 2014},
			},
			Bio:        "General physician focused on preventive care.",
			Fees:       500,
			IsVerified: true,
		}
		return tx.Create(&doctor).Error
	})
}
