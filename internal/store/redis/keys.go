package redis

const (
	// KeyPrefix namespaces every key written by bitscreen.
	KeyPrefix = "bitscreen:"
	// DefaultDocumentKey holds the whole store document.
	DefaultDocumentKey = KeyPrefix + "local_database"
)

// RevisionKey returns the key counting saves of a document.
func RevisionKey(documentKey string) string {
	return documentKey + ":rev"
}
