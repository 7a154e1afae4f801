// Package channel defines the uniform delivery adapter boundary: every
// channel (email, SMS, push) validates its destination format, performs the
// provider call and translates the provider-specific response into a
// normalized SendResult.
//
// Adapters never return Go errors from Send. Missing credentials, provider
// rejections and network failures all come back as failed SendResults, so a
// batch of deliveries is unaffected by one failure. Retrying is a caller
// decision guarded by the delivery ledger, never done inside an adapter.
//
// Provider credentials are loaded once into immutable per-channel Config
// values and passed in at construction; there is no global provider state.
package channel
