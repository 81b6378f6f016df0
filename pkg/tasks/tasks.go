// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// IngestionTask represents the data structure for an uploaded-PDF ingestion job.
type IngestionTask struct {
	DocID      string `json:"doc_id"`
	ObjectName string `json:"object_name"`
	FileName   string `json:"file_name"`
	Title      string `json:"title"`
}
