package common

const (
	// EnvKeyConfigPath points at a YAML configuration file
	EnvKeyConfigPath = "RNATIVE_CONFIG"

	// EnvKeyBaseURL stores the compute service endpoint, including the /api/compute prefix
	EnvKeyBaseURL = "RNATIVE_BASE_URL"

	// EnvKeyAnalyzer stores the default base-pair analyzer
	EnvKeyAnalyzer = "RNATIVE_ANALYZER"

	// EnvKeyVisualization stores the default visualization tool
	EnvKeyVisualization = "RNATIVE_VISUALIZATION"

	// EnvKeyConsensusMode stores the default consensus mode
	EnvKeyConsensusMode = "RNATIVE_CONSENSUS_MODE"

	// EnvKeyConfidence stores the default confidence level; empty means fuzzy
	EnvKeyConfidence = "RNATIVE_CONFIDENCE"

	// EnvKeyMolProbityFilter stores the default MolProbity filter
	EnvKeyMolProbityFilter = "RNATIVE_MOLPROBITY_FILTER"

	// EnvKeyMolProbityFormat selects the enum or boolean wire form of the filter
	EnvKeyMolProbityFormat = "RNATIVE_MOLPROBITY_FORMAT"

	// EnvKeyPollInterval stores the delay between two status polls
	EnvKeyPollInterval = "RNATIVE_POLL_INTERVAL"

	// EnvKeyWaitTimeout bounds the total wait for a task; zero waits forever
	EnvKeyWaitTimeout = "RNATIVE_WAIT_TIMEOUT"

	// EnvKeyRequestTimeout bounds a single HTTP request
	EnvKeyRequestTimeout = "RNATIVE_REQUEST_TIMEOUT"

	// EnvKeyRetries stores how many times a failed read is retried
	EnvKeyRetries = "RNATIVE_RETRIES"

	// EnvKeyRetryDelay stores the pause between two retried reads
	EnvKeyRetryDelay = "RNATIVE_RETRY_DELAY"

	// EnvKeyVisualizationPath stores where the SVG visualization is saved
	EnvKeyVisualizationPath = "RNATIVE_VISUALIZATION_PATH"

	// EnvKeyHistoryDSN stores the data source of the local task history
	EnvKeyHistoryDSN = "RNATIVE_HISTORY_DSN"

	// EnvKeyHistoryDriver selects the history database driver
	EnvKeyHistoryDriver = "RNATIVE_HISTORY_DRIVER"

	// EnvKeyBrokerURL stores the AMQP connection string for task events
	EnvKeyBrokerURL = "RNATIVE_BROKER_URL"

	// EnvKeyBrokerQueue stores the queue receiving task events
	EnvKeyBrokerQueue = "RNATIVE_BROKER_QUEUE"

	// EnvKeyConcurrency bounds the per-model result fetches in flight
	EnvKeyConcurrency = "RNATIVE_CONCURRENCY"

	// EnvKeyLogLevel stores the logrus level name
	EnvKeyLogLevel = "RNATIVE_LOG_LEVEL"

	// EnvKeyLogFormat selects the text or json log formatter
	EnvKeyLogFormat = "RNATIVE_LOG_FORMAT"
)
