package dto

// QueuedOpInfo is the diagnostics view of one pending operation.
type QueuedOpInfo struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	Timestamp  int64  `json:"timestamp"`
	RetryCount int    `json:"retry_count"`
}

// QueueStatusResponse is served to the diagnostics/UI surface.
type QueueStatusResponse struct {
	Count        int            `json:"count"`
	IsProcessing bool           `json:"is_processing"`
	IsOnline     bool           `json:"is_online"`
	Operations   []QueuedOpInfo `json:"operations"`
}
