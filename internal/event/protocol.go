package event

import "github.com/leonardomso/webcheck/internal/config"

// Topics emitted by the backend during a run.
const (
	TopicCheckResult   = "check_result"
	TopicCheckComplete = "check_complete"
)

// Commands accepted by the backend.
const (
	CommandBatchCheck  = "batch_check_urls"
	CommandCancelCheck = "cancel_check"
)

// BatchCheckArgs are the arguments of batch_check_urls.
type BatchCheckArgs struct {
	URLs   []string           `json:"urls"`
	Config config.CheckConfig `json:"config"`
}
