package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/tutorhub/internal/flagx"
	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "TUTORHUB_"

// loadDotEnv is a seam for godotenv.Load.
var loadDotEnv = godotenv.Load

// parseEnv loads a .env file into the process environment and then copies
// TUTORHUB_* variables into config.
//
// The file is the one named by -env; without the flag ".env" in the working
// directory is used if present. Malformed values panic, like the other
// loaders.
func parseEnv(config *Config) {
	if path := flagx.EnvFileFlag(); path != "" {
		if err := loadDotEnv(path); err != nil {
			panic(err)
		}
	} else if err := loadDotEnv(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(err)
	}

	applyEnv(config, os.LookupEnv)
}

func applyEnv(c *Config, lookup func(string) (string, bool)) {
	strs := map[string]*string{
		"ENVIRONMENT":           &c.Environment,
		"LOG_FORMAT":            &c.LogFormat,
		"HTTP_ADDR":             &c.EndpointAddrHTTP,
		"HEALTH_ADDR":           &c.EndpointAddrHealth,
		"TLS_CERT_FILE":         &c.TLSCertFile,
		"TLS_KEY_FILE":          &c.TLSKeyFile,
		"DATABASE_DSN":          &c.DatabaseDSN,
		"SECRET_KEY":            &c.SecretKey,
		"FRONTEND_URL":          &c.FrontendURL,
		"SMTP_HOST":             &c.SMTPHost,
		"SMTP_USER":             &c.SMTPUser,
		"SMTP_PASSWORD":         &c.SMTPPassword,
		"MAIL_FROM":             &c.MailFrom,
		"S3_ROOT_USER":          &c.S3RootUser,
		"S3_ROOT_PASSWORD":      &c.S3RootPassword,
		"S3_BUCKET":             &c.S3Bucket,
		"S3_REGION":             &c.S3Region,
		"S3_BASE_ENDPOINT":      &c.S3BaseEndpoint,
		"S3_SUBMISSIONS_PREFIX": &c.S3SubmissionsPrefix,
		"TELEGRAM_BOT_TOKEN":    &c.TelegramBotToken,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"ACCESS_TOKEN_TTL":       &c.AccessTokenValidityDuration,
		"VERIFICATION_TOKEN_TTL": &c.VerificationTokenWindow,
		"RESET_TOKEN_TTL":        &c.ResetTokenWindow,
	}
	for name, dst := range durations {
		if v, ok := lookup(EnvPrefix + name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}

	if v, ok := lookup(EnvPrefix + "SMTP_PORT"); ok {
		c.SMTPPort = mustAtoi(v)
	}
	if v, ok := lookup(EnvPrefix + "MAX_UPLOAD_BYTES"); ok {
		c.MaxUploadBytes = mustAtoi(v)
	}
	if v, ok := lookup(EnvPrefix + "TELEGRAM_CHAT_ID"); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(err)
		}
		c.TelegramChatID = id
	}
}

func mustAtoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		panic(err)
	}
	return n
}
