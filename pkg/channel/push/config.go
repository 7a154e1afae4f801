package push

// Config holds push channel configuration. The engine does not speak any
// vendor push protocol itself; it posts signed payloads to a push gateway
// that fans out to APNs/FCM.
type Config struct {
	GatewayURL    string `env:"PUSH_GATEWAY_URL"`
	SigningSecret string `env:"PUSH_SIGNING_SECRET"`
}
