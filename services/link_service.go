package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"referral-flow-bot/models"
	"referral-flow-bot/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UTM defaults applied when a link row leaves a field unset. The campaign
// default is the variant key (or product key) so analytics stay traceable
// without manual tagging.
const (
	defaultUTMSource = "telegram"
	defaultUTMMedium = "referral"
)

// LinkService builds tracked outbound URLs from stored base URLs plus UTM
// parameters. The shortener is optional; on any failure the unshortened
// URL is returned instead of an error.
type LinkService struct {
	DB        *gorm.DB
	Shortener *utils.Shortener
}

func NewLinkService(db *gorm.DB, shortener *utils.Shortener) *LinkService {
	return &LinkService{DB: db, Shortener: shortener}
}

// UpsertLink stores or replaces the link for a (bank, product, variant)
// triple. A nil variantKey means the link applies to the product generally.
func (s *LinkService) UpsertLink(bankKey, productKey string, variantKey *string, baseURL, utmSource, utmMedium, utmCampaign string) error {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return fmt.Errorf("%w: bad base URL: %v", ErrValidation, err)
	}
	link := &models.ReferralLink{
		BankKey:     strings.ToLower(bankKey),
		ProductKey:  strings.ToLower(productKey),
		VariantKey:  variantKey,
		BaseURL:     baseURL,
		UTMSource:   utmSource,
		UTMMedium:   utmMedium,
		UTMCampaign: utmCampaign,
		IsActive:    true,
	}
	return s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "bank_key"}, {Name: "product_key"}, {Name: "variant_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"base_url", "utm_source", "utm_medium", "utm_campaign", "is_active", "updated_at",
		}),
	}).Create(link).Error
}

// BuildLink resolves the stored link (exact variant match first, then the
// product-level row), merges UTM parameters over the base URL's existing
// query string and optionally shortens the result.
//
// Merge rule: existing query parameters survive unless they collide with a
// UTM key — stored UTM values always win. This lets admins embed
// bank-specific tracking in the base URL while the bot still injects its
// own attribution.
func (s *LinkService) BuildLink(ctx context.Context, bankKey, productKey string, variantKey *string, shorten bool) (string, error) {
	link, err := s.resolve(bankKey, productKey, variantKey)
	if err != nil {
		return "", err
	}

	campaign := link.UTMCampaign
	if campaign == "" {
		if variantKey != nil && *variantKey != "" {
			campaign = *variantKey
		} else {
			campaign = productKey
		}
	}
	utm := map[string]string{
		"utm_source":   coalesce(link.UTMSource, defaultUTMSource),
		"utm_medium":   coalesce(link.UTMMedium, defaultUTMMedium),
		"utm_campaign": campaign,
	}

	finalURL, err := mergeUTM(link.BaseURL, utm)
	if err != nil {
		return "", fmt.Errorf("stored base URL is unparseable: %w", err)
	}

	if shorten && s.Shortener != nil {
		finalURL = s.Shortener.Shorten(ctx, finalURL)
	}
	return finalURL, nil
}

func (s *LinkService) resolve(bankKey, productKey string, variantKey *string) (*models.ReferralLink, error) {
	var link models.ReferralLink

	if variantKey != nil && *variantKey != "" {
		err := s.DB.Where(
			"bank_key = ? AND product_key = ? AND variant_key = ? AND is_active = ?",
			bankKey, productKey, *variantKey, true,
		).First(&link).Error
		if err == nil {
			return &link, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	err := s.DB.Where(
		"bank_key = ? AND product_key = ? AND variant_key IS NULL AND is_active = ?",
		bankKey, productKey, true,
	).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// mergeUTM overlays utm params on the URL's query string, preserving
// scheme/host/path/fragment and any non-colliding existing parameters.
func mergeUTM(baseURL string, utm map[string]string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	q := parsed.Query()
	for k, v := range utm {
		if v != "" {
			q.Set(k, v)
		}
	}
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func coalesce(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
