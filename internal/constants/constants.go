package constants

import "time"

const (
	DefaultProviderBaseURL = "https://api.dhrtecnologialtda.com/v1"
	ProviderPageSize       = 50
)

const (
	DefaultPollIntervalSeconds = 5
	DefaultServerPort          = 3000
)

const (
	ProviderHTTPTimeout = 10 * time.Second
	DispatchHTTPTimeout = 10 * time.Second
)

const (
	LedgerRedisKey = "relay:ledger"
)

const (
	DefaultSubscriptionsFile = "data/subscriptions.json"
	DefaultLedgerFile        = "data/ledger.json"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)
