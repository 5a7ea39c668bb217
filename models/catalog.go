package models

import "time"

// Bank is admin-managed reference data.
type Bank struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	BankKey   string `gorm:"uniqueIndex;not null" json:"bank_key"`
	BankName  string `gorm:"not null" json:"bank_name"`
	BankTitle string `gorm:"not null" json:"bank_title"`
	// No default tag: with one, GORM drops a false value from the INSERT
	// and an upsert could never deactivate a bank.
	IsActive bool `gorm:"not null" json:"is_active"`
}

// Product belongs to exactly one bank, addressed by the (bank, product) key pair.
type Product struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BankKey     string    `gorm:"uniqueIndex:idx_products_bank_product;not null" json:"bank_key"`
	ProductKey  string    `gorm:"uniqueIndex:idx_products_bank_product;not null" json:"product_key"`
	ProductName string    `gorm:"not null" json:"product_name"`
	Description string    `json:"description"`
	IsActive    bool      `gorm:"default:false" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Variant is an optional refinement of a product (e.g. a seasonal promo of
// the same card). A product may have no variants at all.
type Variant struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BankKey     string    `gorm:"uniqueIndex:idx_variants_key;not null" json:"bank_key"`
	ProductKey  string    `gorm:"uniqueIndex:idx_variants_key;not null" json:"product_key"`
	VariantKey  string    `gorm:"uniqueIndex:idx_variants_key;not null" json:"variant_key"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `json:"description"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// OfferParentType says whether an offer hangs off a product or one of its
// variants. The two are mutually exclusive.
type OfferParentType string

const (
	OfferParentProduct OfferParentType = "product"
	OfferParentVariant OfferParentType = "variant"
)

// Offer holds the bonus terms for a product or variant.
type Offer struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	BankKey         string          `gorm:"uniqueIndex:idx_offers_parent_title;not null" json:"bank_key"`
	ParentType      OfferParentType `gorm:"uniqueIndex:idx_offers_parent_title;not null" json:"parent_type"`
	ParentKey       string          `gorm:"uniqueIndex:idx_offers_parent_title;not null" json:"parent_key"`
	OfferTitle      string          `gorm:"uniqueIndex:idx_offers_parent_title;not null" json:"offer_title"`
	OfferConditions string          `gorm:"not null" json:"offer_conditions"`
	GrossBonus      int64           `gorm:"not null" json:"gross_bonus"`
	IsActive        bool            `gorm:"default:false" json:"is_active"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ReferralLink is the tracked outbound URL for a (bank, product, variant)
// triple. VariantKey is nil when the link applies to the product generally.
type ReferralLink struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	BankKey     string    `gorm:"uniqueIndex:idx_links_key;not null" json:"bank_key"`
	ProductKey  string    `gorm:"uniqueIndex:idx_links_key;not null" json:"product_key"`
	VariantKey  *string   `gorm:"uniqueIndex:idx_links_key" json:"variant_key,omitempty"`
	BaseURL     string    `gorm:"not null" json:"base_url"`
	UTMSource   string    `json:"utm_source"`
	UTMMedium   string    `json:"utm_medium"`
	UTMCampaign string    `json:"utm_campaign"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
