package models

import (
	"gorm.io/gorm"
)

type UserType string

const (
	UserTypeClient UserType = "client"
	UserTypeVendor UserType = "vendor"
)

// User is a shipper account. Authentication is OTP-only, so there is no
// password column; the contact number is the identity.
type User struct {
	gorm.Model
	FullName      string `json:"fullName" gorm:"column:full_name"`
	Email         string `json:"email" gorm:"column:email"`
	ContactNumber string `json:"contactNumber" gorm:"column:contact_number;unique;not null"`
	IsVerified    bool   `json:"isVerified" gorm:"column:is_verified;default:false"`
	City          string `json:"city" gorm:"column:city"`
	State         string `json:"state" gorm:"column:state"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}
