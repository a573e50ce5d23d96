package bizextract

import "errors"

var (
	// ErrDocumentNotFound is returned when an input path does not exist.
	ErrDocumentNotFound = errors.New("bizextract: document not found")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("bizextract: unsupported document format")

	// ErrParsingFailed is returned when document text extraction fails.
	ErrParsingFailed = errors.New("bizextract: parsing failed")

	// ErrTaggingFailed is returned when the entity tagger fails on a chunk.
	ErrTaggingFailed = errors.New("bizextract: entity tagging failed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("bizextract: invalid configuration")
)

// EmptyDocumentError is the error text recorded for documents without
// extractable text.
const EmptyDocumentError = "Документ пуст или не удалось извлечь текст"
