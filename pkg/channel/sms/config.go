package sms

// Config holds SMS channel configuration. ActiveProvider selects which
// backing vendor the adapter uses; only that vendor's credentials need to
// be present.
type Config struct {
	ActiveProvider string `env:"SMS_PROVIDER" envDefault:"twilio"`
	FromNumber     string `env:"SMS_FROM_NUMBER"`

	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`

	VonageAPIKey    string `env:"VONAGE_API_KEY"`
	VonageAPISecret string `env:"VONAGE_API_SECRET"`
}
