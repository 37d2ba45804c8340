package dto

// Stream event types, in emit order: sources first, chunks, then a terminal
// complete or error. Document events are optional and sit between chunks
// and complete.
const (
	StreamEventSources       = "sources"
	StreamEventChunk         = "chunk"
	StreamEventDocument      = "document"
	StreamEventDocumentError = "document_error"
	StreamEventComplete      = "complete"
	StreamEventError         = "error"
)

// StreamEvent is one framed JSON event on the response stream
type StreamEvent struct {
	Type     string       `json:"type"`
	Sources  []SourceDTO  `json:"sources,omitempty"`
	Chunk    string       `json:"chunk,omitempty"`
	Document *DocumentDTO `json:"document,omitempty"`
	Answer   string       `json:"answer,omitempty"` // full text, complete event only
	Cached   bool         `json:"cached,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// DocumentDTO describes a generated downloadable artifact
type DocumentDTO struct {
	Format   string `json:"format"` // pdf | pptx | xlsx
	FileName string `json:"file_name"`
	URL      string `json:"url"`
}
