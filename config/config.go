package config

import (
	"encoding/base64"
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL string
	BotToken    string

	// Telegram ids allowed to use admin commands and receive reports.
	AdminIDs map[int64]bool

	// 32-byte key (base64) for phone encryption and hashing.
	EncryptionKey []byte

	AdminAPIToken string
	ListenAddr    string

	ShortenerURL string

	// R2 report archive (optional; upload is skipped when unset).
	R2AccountID    string
	R2AccessKeyID  string
	R2AccessSecret string
	R2Bucket       string
	CDNBaseURL     string
}

func MustLoad() *Config {
	cfg := &Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		BotToken:      os.Getenv("BOT_TOKEN"),
		AdminAPIToken: os.Getenv("ADMIN_API_TOKEN"),
		ListenAddr:    os.Getenv("LISTEN_ADDR"),
		ShortenerURL:  os.Getenv("SHORTENER_URL"),

		R2AccountID:    os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
		R2AccessKeyID:  os.Getenv("R2_ACCESS_KEY_ID"),
		R2AccessSecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
		R2Bucket:       os.Getenv("R2_BUCKET_NAME"),
		CDNBaseURL:     os.Getenv("CDN_BASE_URL"),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}
	if cfg.BotToken == "" {
		log.Fatal("BOT_TOKEN is not set")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":5300"
	}
	if cfg.ShortenerURL == "" {
		cfg.ShortenerURL = "https://clck.ru/--"
	}

	cfg.AdminIDs = parseIDs(os.Getenv("ADMIN_IDS"))
	cfg.EncryptionKey = mustKey("ENCRYPTION_KEY")

	return cfg
}

func mustKey(name string) []byte {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		log.Fatalf("%s is not set", name)
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		log.Fatalf("bad %s: %v", name, err)
	}
	if len(key) != 32 {
		log.Fatalf("bad %s: want 32 bytes, got %d", name, len(key))
	}
	return key
}

func parseIDs(s string) map[int64]bool {
	out := map[int64]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			log.Fatalf("bad ADMIN_IDS entry %q: %v", p, err)
		}
		out[id] = true
	}
	return out
}
