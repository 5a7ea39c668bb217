package models

import "time"

// ApplicationStatus is the enrollment lifecycle state. Transitions are
// one-way: pending goes to approved or rejected, both terminal.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// Application is the central ledger row: one per user's attempt at a
// specific offer. Bank/product/variant keys are denormalized at creation
// time so later catalog edits never change historical payouts, and
// GrossBonus is a snapshot of the offer's bonus for the same reason.
type Application struct {
	ID          int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64             `gorm:"index;not null" json:"user_id"`
	OfferID     int64             `gorm:"index;not null" json:"offer_id"`
	BankKey     string            `gorm:"index;not null" json:"bank_key"`
	ProductKey  string            `gorm:"not null" json:"product_key"`
	VariantKey  *string           `json:"variant_key,omitempty"`
	Status      ApplicationStatus `gorm:"index;not null;default:pending" json:"status"`
	GrossBonus  int64             `gorm:"not null" json:"gross_bonus"`
	CreatedAt   time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty"`

	User  User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Offer Offer `gorm:"foreignKey:OfferID" json:"-"`
}

// ApplicationBonus is the per-application detail written by the bonus
// recalculator: one row per application instead of a serialized blob, so
// partial updates stay safe and reads need no parsing.
type ApplicationBonus struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        int64     `gorm:"index;not null" json:"user_id"`
	ApplicationID int64     `gorm:"uniqueIndex;not null" json:"application_id"`
	BankKey       string    `gorm:"not null" json:"bank_key"`
	ProductKey    string    `gorm:"not null" json:"product_key"`
	ProductName   string    `json:"product_name"`
	GrossBonus    int64     `gorm:"not null" json:"gross_bonus"`
	NetBonus      int64     `gorm:"not null" json:"net_bonus"`
	Confirmed     bool      `gorm:"not null" json:"confirmed"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
