package services

import (
	"errors"
	"fmt"
	"strings"

	"referral-flow-bot/models"

	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogService manages the Bank → Product → Variant → Offer hierarchy.
// Writes are admin-only; every upsert updates mutable fields on key
// conflict so catalog imports can be re-run safely.
type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// --- Banks ---

func (s *CatalogService) UpsertBank(bankKey, bankName, bankTitle string, isActive bool) error {
	bankKey = strings.ToLower(strings.TrimSpace(bankKey))
	if bankKey == "" || bankName == "" {
		return fmt.Errorf("%w: bank key and name are required", ErrValidation)
	}
	bank := &models.Bank{BankKey: bankKey, BankName: bankName, BankTitle: bankTitle, IsActive: isActive}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bank_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"bank_name", "bank_title", "is_active"}),
	}).Create(bank).Error
}

func (s *CatalogService) ActiveBanks() ([]models.Bank, error) {
	var banks []models.Bank
	err := s.DB.Where("is_active = ?", true).Order("bank_key").Find(&banks).Error
	return banks, err
}

func (s *CatalogService) AllBanks() ([]models.Bank, error) {
	var banks []models.Bank
	err := s.DB.Order("bank_key").Find(&banks).Error
	return banks, err
}

func (s *CatalogService) GetBankByName(name string) (*models.Bank, error) {
	var bank models.Bank
	err := s.DB.Where("LOWER(bank_name) = LOWER(?) AND is_active = ?", name, true).First(&bank).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &bank, err
}

func (s *CatalogService) ToggleBank(bankKey string, isActive bool) error {
	return s.toggle(&models.Bank{}, isActive, "bank_key = ?", bankKey)
}

// --- Products ---

func (s *CatalogService) UpsertProduct(bankKey, productKey, productName, description string, isActive bool) error {
	bankKey = strings.ToLower(strings.TrimSpace(bankKey))
	productKey = strings.ToLower(strings.TrimSpace(productKey))
	if bankKey == "" || productKey == "" || productName == "" {
		return fmt.Errorf("%w: bank key, product key and name are required", ErrValidation)
	}
	p := &models.Product{
		BankKey:     bankKey,
		ProductKey:  productKey,
		ProductName: productName,
		Description: description,
		IsActive:    isActive,
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "bank_key"}, {Name: "product_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"product_name", "description", "is_active"}),
	}).Create(p).Error
}

func (s *CatalogService) ProductsByBank(bankKey string, includeInactive bool) ([]models.Product, error) {
	var products []models.Product
	q := s.DB.Where("bank_key = ?", bankKey)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("product_name").Find(&products).Error
	return products, err
}

func (s *CatalogService) GetProduct(bankKey, productKey string) (*models.Product, error) {
	var p models.Product
	err := s.DB.Where("bank_key = ? AND product_key = ?", bankKey, productKey).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &p, err
}

func (s *CatalogService) ToggleProduct(bankKey, productKey string, isActive bool) error {
	return s.toggle(&models.Product{}, isActive, "bank_key = ? AND product_key = ?", bankKey, productKey)
}

// --- Variants ---

// VariantKeyFromTitle slugifies a human title into a stable ascii key with
// underscores ("Чёрная карта 2.0" → "chyornaya_karta_2_0").
func VariantKeyFromTitle(title string) string {
	return strings.ReplaceAll(slug.Make(title), "-", "_")
}

// GenerateVariantKey returns a collision-free key under (bank, product),
// appending _2, _3, ... when the slug is already taken.
func (s *CatalogService) GenerateVariantKey(bankKey, productKey, title string) (string, error) {
	baseKey := VariantKeyFromTitle(title)
	if baseKey == "" {
		return "", fmt.Errorf("%w: title produced an empty key", ErrValidation)
	}

	var existing []string
	err := s.DB.Model(&models.Variant{}).
		Where("bank_key = ? AND product_key = ? AND variant_key LIKE ?", bankKey, productKey, baseKey+"%").
		Pluck("variant_key", &existing).Error
	if err != nil {
		return "", err
	}

	taken := make(map[string]bool, len(existing))
	for _, k := range existing {
		taken[k] = true
	}
	if !taken[baseKey] {
		return baseKey, nil
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d", baseKey, i)
		if !taken[candidate] {
			return candidate, nil
		}
	}
}

// CreateVariant generates the key from the title and inserts the variant.
func (s *CatalogService) CreateVariant(bankKey, productKey, title, description string) (*models.Variant, error) {
	if _, err := s.GetProduct(bankKey, productKey); err != nil {
		return nil, err
	}
	key, err := s.GenerateVariantKey(bankKey, productKey, title)
	if err != nil {
		return nil, err
	}
	v := &models.Variant{
		BankKey:     bankKey,
		ProductKey:  productKey,
		VariantKey:  key,
		Title:       title,
		Description: description,
		IsActive:    true,
	}
	if err := s.DB.Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

func (s *CatalogService) VariantsByProduct(bankKey, productKey string, includeInactive bool) ([]models.Variant, error) {
	var variants []models.Variant
	q := s.DB.Where("bank_key = ? AND product_key = ?", bankKey, productKey)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("id").Find(&variants).Error
	return variants, err
}

func (s *CatalogService) GetVariant(bankKey, productKey, variantKey string) (*models.Variant, error) {
	var v models.Variant
	err := s.DB.Where("bank_key = ? AND product_key = ? AND variant_key = ?", bankKey, productKey, variantKey).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &v, err
}

func (s *CatalogService) UpdateVariant(bankKey, productKey, variantKey, title, description string) error {
	res := s.DB.Model(&models.Variant{}).
		Where("bank_key = ? AND product_key = ? AND variant_key = ?", bankKey, productKey, variantKey).
		Updates(map[string]interface{}{"title": title, "description": description})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *CatalogService) ToggleVariant(bankKey, productKey, variantKey string, isActive bool) error {
	return s.toggle(&models.Variant{}, isActive,
		"bank_key = ? AND product_key = ? AND variant_key = ?", bankKey, productKey, variantKey)
}

// --- Offers ---

func (s *CatalogService) UpsertOffer(bankKey string, parentType models.OfferParentType, parentKey, title, conditions string, grossBonus int64, isActive bool) error {
	if parentType != models.OfferParentProduct && parentType != models.OfferParentVariant {
		return fmt.Errorf("%w: parent type must be product or variant", ErrValidation)
	}
	if grossBonus < 0 {
		return fmt.Errorf("%w: gross bonus must be non-negative", ErrValidation)
	}
	offer := &models.Offer{
		BankKey:         strings.ToLower(bankKey),
		ParentType:      parentType,
		ParentKey:       parentKey,
		OfferTitle:      title,
		OfferConditions: conditions,
		GrossBonus:      grossBonus,
		IsActive:        isActive,
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "bank_key"}, {Name: "parent_type"}, {Name: "parent_key"}, {Name: "offer_title"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"offer_conditions", "gross_bonus", "is_active", "updated_at"}),
	}).Create(offer).Error
}

func (s *CatalogService) GetOffer(offerID int64) (*models.Offer, error) {
	var offer models.Offer
	err := s.DB.First(&offer, offerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &offer, err
}

func (s *CatalogService) OffersByParent(bankKey string, parentType models.OfferParentType, parentKey string, includeInactive bool) ([]models.Offer, error) {
	var offers []models.Offer
	q := s.DB.Where("bank_key = ? AND parent_type = ? AND parent_key = ?", bankKey, parentType, parentKey)
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	err := q.Order("created_at DESC").Find(&offers).Error
	return offers, err
}

func (s *CatalogService) DeleteOffer(offerID int64) error {
	res := s.DB.Delete(&models.Offer{}, offerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *CatalogService) toggle(model interface{}, isActive bool, query string, args ...interface{}) error {
	res := s.DB.Model(model).Where(query, args...).Update("is_active", isActive)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
