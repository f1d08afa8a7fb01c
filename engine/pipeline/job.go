package pipeline

// NATS subjects for queued ingestion.
const (
	// IngestSubject carries IngestJob messages from producers to workers.
	IngestSubject = "vidsage.ingest"
	// DLQSubject receives jobs that exhausted their retries.
	DLQSubject = "vidsage.ingest.dlq"
	// MaxRetries is how many attempts a worker makes before the DLQ.
	MaxRetries = 3
)

// IngestJob is a queued ingestion request.
type IngestJob struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// DLQMessage wraps a failed job with its final error.
type DLQMessage struct {
	Job     IngestJob `json:"job"`
	Error   string    `json:"error"`
	Retries int       `json:"retries"`
}
