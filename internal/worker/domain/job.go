package domain

// JobMessage represents an extraction job message from the queue
type JobMessage struct {
	JobID       string `json:"job_id"`
	DeliveryTag uint64 `json:"-"`
}
