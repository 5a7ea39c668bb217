package models

import "time"

// User is a registered referrer. The primary key is the Telegram user id,
// so no local id generation is needed.
type User struct {
	UserID        int64     `gorm:"primaryKey" json:"user_id"`
	FullName      string    `gorm:"not null" json:"full_name"`
	PhoneEnc      []byte    `json:"-"` // AES-GCM ciphertext of the normalized phone
	PhoneHash     *string   `gorm:"uniqueIndex" json:"-"`
	TrafficSource string    `gorm:"size:32;default:organic" json:"traffic_source"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// ReferralProgress tracks fulfillment milestones for one user. One row per
// user, created together with the User row.
type ReferralProgress struct {
	UserID            int64      `gorm:"primaryKey" json:"user_id"`
	CardReceived      bool       `gorm:"default:false" json:"card_received"`
	CardReceivedDate  *time.Time `json:"card_received_date,omitempty"`
	CardActivated     bool       `gorm:"default:false" json:"card_activated"`
	CardActivatedDate *time.Time `json:"card_activated_date,omitempty"`
	PurchaseMade      bool       `gorm:"default:false" json:"purchase_made"`
	FirstPurchaseDate *time.Time `json:"first_purchase_date,omitempty"`
	FirstPurchaseAmt  *float64   `json:"first_purchase_amount,omitempty"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// FinancialData is a denormalized per-user rollup. It is only ever written
// by the bonus recalculator and is always reconstructible from applications
// plus progress flags.
type FinancialData struct {
	UserID             int64     `gorm:"primaryKey" json:"user_id"`
	TotalReferralBonus int64     `gorm:"default:0" json:"total_referral_bonus"`
	TotalReferrerBonus int64     `gorm:"default:0" json:"total_referrer_bonus"`
	BonusStatus        string    `gorm:"default:pending" json:"bonus_status"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// ReminderLog records every reminder actually sent. The sweep checks it
// before sending so an overlapping job run cannot double-message a user.
type ReminderLog struct {
	ID      int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID  int64     `gorm:"index;not null" json:"user_id"`
	AdminID int64     `gorm:"not null" json:"admin_id"` // 0 = automatic sweep
	SentAt  time.Time `gorm:"autoCreateTime" json:"sent_at"`
}
