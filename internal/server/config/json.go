package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/tutorhub/internal/flagx"
	"github.com/dmitrijs2005/tutorhub/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON configuration file. Durations
// use timex.Duration so both "90m" and integer nanoseconds are accepted.
// Fields left out of the file (zero values) do not override earlier layers.
type JsonConfig struct {
	Environment                 string         `json:"environment"`
	LogFormat                   string         `json:"log_format"`
	EndpointAddrHTTP            string         `json:"endpoint_addr_http"`
	EndpointAddrHealth          string         `json:"endpoint_addr_health"`
	TLSCertFile                 string         `json:"tls_cert_file"`
	TLSKeyFile                  string         `json:"tls_key_file"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	VerificationTokenWindow     timex.Duration `json:"verification_token_window"`
	ResetTokenWindow            timex.Duration `json:"reset_token_window"`
	FrontendURL                 string         `json:"frontend_url"`
	MaxUploadBytes              int            `json:"max_upload_bytes"`
	SMTPHost                    string         `json:"smtp_host"`
	SMTPPort                    int            `json:"smtp_port"`
	SMTPUser                    string         `json:"smtp_user"`
	SMTPPassword                string         `json:"smtp_password"`
	MailFrom                    string         `json:"mail_from"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	S3SubmissionsPrefix         string         `json:"s3_submissions_prefix"`
	TelegramBotToken            string         `json:"telegram_bot_token"`
	TelegramChatID              int64          `json:"telegram_chat_id"`
}

// parseJson loads the file named by -c/-config (if any) and overlays its
// non-empty values onto config. Unreadable files and invalid JSON panic.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.Environment, c.Environment)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrHealth, c.EndpointAddrHealth)
	setString(&config.TLSCertFile, c.TLSCertFile)
	setString(&config.TLSKeyFile, c.TLSKeyFile)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.FrontendURL, c.FrontendURL)
	setString(&config.SMTPHost, c.SMTPHost)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3SubmissionsPrefix, c.S3SubmissionsPrefix)
	setString(&config.TelegramBotToken, c.TelegramBotToken)

	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.VerificationTokenWindow.Duration != 0 {
		config.VerificationTokenWindow = c.VerificationTokenWindow.Duration
	}
	if c.ResetTokenWindow.Duration != 0 {
		config.ResetTokenWindow = c.ResetTokenWindow.Duration
	}
	if c.MaxUploadBytes != 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if c.SMTPPort != 0 {
		config.SMTPPort = c.SMTPPort
	}
	if c.TelegramChatID != 0 {
		config.TelegramChatID = c.TelegramChatID
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
