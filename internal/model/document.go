package model

// Document is the logical unit submitted for indexing. It is never stored as-is;
// ingestion splits it into chunks and persists one vector record per chunk.
type Document struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Source   string `json:"source"`
	Content  string `json:"content"`
	FilePath string `json:"file_path"`
}

// ContentMetadata is advisory metadata derived from document content.
// It never influences chunk boundaries.
type ContentMetadata struct {
	WordCount   int      `json:"word_count"`
	ReadingTime int      `json:"reading_time"`
	Topics      []string `json:"topics"`
	Summary     string   `json:"summary"`
}

// FileMetadata describes the file a document was extracted from.
type FileMetadata struct {
	FileName    string `json:"file_name"`
	FileType    string `json:"file_type"`
	FileSize    int64  `json:"file_size"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Headings    int    `json:"headings,omitempty"`
	PageCount   int    `json:"page_count,omitempty"`
	KeyCount    int    `json:"key_count,omitempty"`
	Depth       int    `json:"depth,omitempty"`
}
