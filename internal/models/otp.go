package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// OTPPurpose defines why the OTP was issued
type OTPPurpose string

const (
	OTPPurposeLogin  OTPPurpose = "login"
	OTPPurposeSignup OTPPurpose = "signup"
)

// OTP model for storing one-time passwords. Codes are stored bcrypt-hashed;
// the plaintext only ever travels over the SMS gateway.
type OTP struct {
	gorm.Model
	ContactNumber string     `json:"contact_number" gorm:"not null;index"`
	UserType      UserType   `json:"user_type" gorm:"not null"`
	CodeHash      string     `json:"-" gorm:"column:code_hash;not null"`
	Purpose       OTPPurpose `json:"purpose"`
	ExpiresAt     time.Time  `json:"expires_at"`
	Used          bool       `json:"used" gorm:"default:false"`
}

// HashCode stores the bcrypt hash of the plaintext code.
func (o *OTP) HashCode(code string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	o.CodeHash = string(hash)
	return nil
}

// CheckCode compares a submitted code against the stored hash.
func (o *OTP) CheckCode(code string) bool {
	return bcrypt.CompareHashAndPassword([]byte(o.CodeHash), []byte(code)) == nil
}

// IsValid checks if the OTP is valid (not expired and not used)
func (o *OTP) IsValid() bool {
	return !o.Used && time.Now().Before(o.ExpiresAt)
}

// MarkAsUsed marks the OTP as used
func (o *OTP) MarkAsUsed(db *gorm.DB) error {
	o.Used = true
	return db.Save(o).Error
}
