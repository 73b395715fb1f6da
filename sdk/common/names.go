package common

// Defines well-known names of the RNAtive compute service
const (
	DefaultServiceHost = "localhost"
	DefaultAPIPath     = "/api/compute"
	DefaultUserAgent   = "rnative-client"
	HeaderRequestID    = "X-Request-ID"
)

// Defines the application identity used in events and the history store
const (
	AppName             = "rnative"
	EventSourceName     = "rnative-client"
	DefaultBrokerQueue  = "rnative.task.events"
	HistoryDriverSQLite = "sqlite"
	HistoryDriverPQ     = "postgres"
)

// DefaultBaseURL returns the compute endpoint of a locally deployed service.
func DefaultBaseURL() string {
	return "http://" + DefaultServiceHost + DefaultAPIPath
}
