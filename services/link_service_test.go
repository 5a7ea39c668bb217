package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"referral-flow-bot/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLinkMergesUTMOverExistingParams(t *testing.T) {
	svc := NewLinkService(newTestDB(t), nil)

	require.NoError(t, svc.UpsertLink("t-bank", "black", nil,
		"https://x.com/offer?ref=abc", "telegram", "referral", "winter"))

	got, err := svc.BuildLink(context.Background(), "t-bank", "black", nil, false)
	require.NoError(t, err)

	parsed, err := url.Parse(got)
	require.NoError(t, err)
	q := parsed.Query()

	assert.Equal(t, "https", parsed.Scheme)
	assert.Equal(t, "x.com", parsed.Host)
	assert.Equal(t, "/offer", parsed.Path)
	assert.Equal(t, "abc", q.Get("ref")) // pre-existing param survives
	assert.Equal(t, "telegram", q.Get("utm_source"))
	assert.Equal(t, "referral", q.Get("utm_medium"))
	assert.Equal(t, "winter", q.Get("utm_campaign"))
	for k, vs := range q {
		assert.Len(t, vs, 1, "parameter %s duplicated", k)
	}
}

func TestBuildLinkStoredUTMWinsOverBaseURL(t *testing.T) {
	svc := NewLinkService(newTestDB(t), nil)

	require.NoError(t, svc.UpsertLink("t-bank", "black", nil,
		"https://x.com/offer?utm_source=bank&ref=abc", "telegram", "", ""))

	got, err := svc.BuildLink(context.Background(), "t-bank", "black", nil, false)
	require.NoError(t, err)

	q := mustQuery(t, got)
	assert.Equal(t, "telegram", q.Get("utm_source"))
	assert.Equal(t, "abc", q.Get("ref"))
}

func TestBuildLinkDefaults(t *testing.T) {
	svc := NewLinkService(newTestDB(t), nil)

	require.NoError(t, svc.UpsertLink("t-bank", "black", nil,
		"https://x.com/offer", "", "", ""))

	got, err := svc.BuildLink(context.Background(), "t-bank", "black", nil, false)
	require.NoError(t, err)

	q := mustQuery(t, got)
	assert.Equal(t, "telegram", q.Get("utm_source"))
	assert.Equal(t, "referral", q.Get("utm_medium"))
	// campaign default is product-identifying
	assert.Equal(t, "black", q.Get("utm_campaign"))

	// with a variant, the variant key wins the campaign default
	winter := "winter_promo"
	require.NoError(t, svc.UpsertLink("t-bank", "black", &winter,
		"https://x.com/offer/winter", "", "", ""))
	got, err = svc.BuildLink(context.Background(), "t-bank", "black", &winter, false)
	require.NoError(t, err)
	assert.Equal(t, "winter_promo", mustQuery(t, got).Get("utm_campaign"))
}

func TestBuildLinkVariantFallsBackToProductRow(t *testing.T) {
	svc := NewLinkService(newTestDB(t), nil)

	require.NoError(t, svc.UpsertLink("t-bank", "black", nil,
		"https://x.com/offer", "", "", ""))

	missing := "no_such_variant"
	got, err := svc.BuildLink(context.Background(), "t-bank", "black", &missing, false)
	require.NoError(t, err)
	assert.Contains(t, got, "https://x.com/offer")
}

func TestBuildLinkNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := NewLinkService(db, nil)

	_, err := svc.BuildLink(context.Background(), "t-bank", "black", nil, false)
	assert.ErrorIs(t, err, ErrNotFound)

	// an inactive row is as good as absent
	require.NoError(t, svc.UpsertLink("t-bank", "black", nil, "https://x.com/offer", "", "", ""))
	require.NoError(t, db.Exec("UPDATE referral_links SET is_active = ?", false).Error)
	_, err = svc.BuildLink(context.Background(), "t-bank", "black", nil, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBuildLinkShortenerSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.NotEmpty(t, r.Form.Get("url"))
		_, _ = w.Write([]byte("https://clck.ru/abc123\n"))
	}))
	defer server.Close()

	svc := NewLinkService(newTestDB(t), utils.NewShortener(server.URL))
	require.NoError(t, svc.UpsertLink("t-bank", "black", nil, "https://x.com/offer", "", "", ""))

	got, err := svc.BuildLink(context.Background(), "t-bank", "black", nil, true)
	require.NoError(t, err)
	assert.Equal(t, "https://clck.ru/abc123", got)
}

func TestBuildLinkShortenerFailureFallsThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewLinkService(newTestDB(t), utils.NewShortener(server.URL))
	require.NoError(t, svc.UpsertLink("t-bank", "black", nil, "https://x.com/offer?ref=abc", "", "", ""))

	got, err := svc.BuildLink(context.Background(), "t-bank", "black", nil, true)
	require.NoError(t, err)
	assert.Contains(t, got, "x.com/offer")
	assert.Contains(t, got, "ref=abc")
}

func TestUpsertLinkRejectsBadURL(t *testing.T) {
	svc := NewLinkService(newTestDB(t), nil)
	err := svc.UpsertLink("t-bank", "black", nil, "not a url", "", "", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func mustQuery(t *testing.T, rawURL string) url.Values {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	return parsed.Query()
}
