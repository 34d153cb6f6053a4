package common

import (
	"github.com/google/uuid"
)

// NewInsightID generates a unique insight ID with the "ins_" prefix
// Format: ins_<uuid>
func NewInsightID() string {
	return "ins_" + uuid.New().String()
}

// NewJobID generates a unique scheduled job ID with the "job_" prefix
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewTransactionID generates a unique credit transaction ID with the "txn_" prefix
func NewTransactionID() string {
	return "txn_" + uuid.New().String()
}

// NewDocumentID generates a unique knowledge document ID with the "doc_" prefix
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}
