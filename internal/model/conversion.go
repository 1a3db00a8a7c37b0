package model

// ConversionLog records one CSV conversion call.
type ConversionLog struct {
	ID        int64  `json:"id"`
	UserID    string `json:"user_id"`
	Timestamp int64  `json:"timestamp"`
	OutputLen int    `json:"output_len"`
}
