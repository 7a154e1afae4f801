package email

// Config holds email channel configuration.
// Postmark tokens are optional to support development environments where
// email sending is disabled; a send attempted without them yields a failed
// result rather than an error.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"notifications@hirewire.app"`
	SupportEmail         string `env:"SUPPORT_EMAIL" envDefault:"support@hirewire.app"`
}

// configured reports whether the provider credentials are present.
func (c Config) configured() bool {
	return c.PostmarkServerToken != "" && c.PostmarkAccountToken != "" && c.SenderEmail != ""
}
