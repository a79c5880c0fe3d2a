package models

import "time"

// DocumentType distinguishes owner-scoped case material from the shared
// knowledge corpus available to every requester.
type DocumentType string

const (
	DocumentTypeUserCase      DocumentType = "user_case"
	DocumentTypeKnowledgeBase DocumentType = "knowledge_base"
)

// Valid reports whether t is a known document type.
func (t DocumentType) Valid() bool {
	return t == DocumentTypeUserCase || t == DocumentTypeKnowledgeBase
}

// DocumentStatus tracks ingestion progress. Transitions only move forward:
// pending -> processing -> completed or failed. Terminal states never resume.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Terminal reports whether s is an end state.
func (s DocumentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Document is one ingested source: a user's case file or a knowledge-base
// reference text. OwnerID is empty for shared-corpus documents.
type Document struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"owner_id,omitempty"`
	CaseID      string         `json:"case_id,omitempty"`
	Title       string         `json:"title"`
	Type        DocumentType   `json:"document_type"`
	Status      DocumentStatus `json:"status"`
	TotalChunks int            `json:"total_chunks"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ChunkMetadata travels with every chunk so search results can be filtered
// and attributed without joining back to the documents table.
type ChunkMetadata struct {
	OwnerID      string       `json:"owner_id,omitempty"`
	CaseID       string       `json:"case_id,omitempty"`
	DocumentType DocumentType `json:"document_type"`
	SourceTitle  string       `json:"source_title"`
	Section      string       `json:"section,omitempty"`
}

// Chunk is a bounded span of document text with its embedding. ChunkIndex
// values for a document form a gapless 0..n-1 sequence in source order.
type Chunk struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	ChunkIndex int           `json:"chunk_index"`
	Text       string        `json:"text"`
	Embedding  []float32     `json:"-"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// SearchResult is one ranked hit from a similarity search.
// Similarity is 1 - cosine distance, so it lives in [0, 1] for
// normalized embeddings.
type SearchResult struct {
	ChunkID    string        `json:"chunk_id"`
	DocumentID string        `json:"document_id"`
	ChunkIndex int           `json:"chunk_index"`
	Text       string        `json:"text"`
	Metadata   ChunkMetadata `json:"metadata"`
	Similarity float64       `json:"similarity"`
}

// CaseSummary is a four-part IRAC case analysis.
type CaseSummary struct {
	Issue      string `json:"issue"`
	Rule       string `json:"rule"`
	Analysis   string `json:"analysis"`
	Conclusion string `json:"conclusion"`
}

// QuizQuestion is a single multiple-choice question. Options always has
// exactly four entries and CorrectAnswer indexes into it.
type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Topic         string   `json:"topic,omitempty"`
}

// MockExam is a titled, ordered list of topic-tagged questions.
type MockExam struct {
	Title     string         `json:"title"`
	Questions []QuizQuestion `json:"questions"`
}

// IngestResult reports the outcome of one ingestion run. TotalChunks counts
// chunks actually persisted, which can be fewer than the chunker produced
// when a persistence batch was skipped.
type IngestResult struct {
	DocumentID  string         `json:"document_id"`
	TotalChunks int            `json:"total_chunks"`
	Status      DocumentStatus `json:"status"`
}
