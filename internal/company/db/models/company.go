// Package models contains the table rows persisted through GORM. They are
// kept apart from the domain models so schema tags never leak upward.
package models

import (
	"time"
)

// Company is a row of the company table.
type Company struct {
	ID        uint    `gorm:"primaryKey"`
	Name      string  `gorm:"size:255;not null"`
	Email     string  `gorm:"size:255;not null;uniqueIndex"`
	Website   *string `gorm:"size:2048"`
	Logo      *string `gorm:"size:255"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Company) TableName() string {
	return "company"
}

// Employee is a row of the employee table. The company foreign key
// restricts deletes, so employees have to go before their company does.
type Employee struct {
	ID        uint     `gorm:"primaryKey"`
	FirstName string   `gorm:"size:255;not null"`
	LastName  string   `gorm:"size:255;not null"`
	Email     string   `gorm:"size:255;not null;uniqueIndex"`
	Phone     string   `gorm:"size:255;not null;uniqueIndex"`
	CompanyID uint     `gorm:"not null;index:employee_company_id"`
	Company   *Company `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Employee) TableName() string {
	return "employee"
}
