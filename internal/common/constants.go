package common

import "time"

// Environment variable keys
const (
	EnvConfigFile     = "CONFIG_FILE"
	EnvListenHost     = "LISTEN_HOST"
	EnvListenPort     = "LISTEN_PORT"
	EnvTreeModelPath  = "TREE_MODEL_PATH"
	EnvSeqModelPath   = "SEQ_MODEL_PATH"
	EnvDataPath       = "DATA_PATH"
	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvHistoryLimit   = "HISTORY_LIMIT"
	EnvDashboardPort  = "DASHBOARD_PORT"
	EnvServiceURL     = "SERVICE_URL"
)

// Configuration defaults
const (
	DefaultListenHost     = "0.0.0.0"
	DefaultListenPort     = 8000
	DefaultTreeModelPath  = "models/tree_ensemble.json"
	DefaultSeqModelPath   = "models/recurrent_net.json"
	DefaultHistoryLimit   = 100
	DefaultDashboardPort  = 8081
	DefaultServiceURL     = "http://127.0.0.1:8000"
	DefaultRequestTimeout = 5 * time.Second
)

// Validation constants
const (
	MinPort         = 1
	MaxPort         = 65535
	MaxHistoryLimit = 10000
)
