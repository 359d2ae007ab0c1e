package models

// UploadResult describes a blob stored in object storage on behalf of a user.
// The content lives in the bucket only; nothing is persisted in the database.
type UploadResult struct {
	// Filename is the client-supplied name, echoed back in responses.
	Filename string
	// Key is the object-storage key the blob was stored under.
	Key string
	// URL is a temporary presigned GET URL for downloading the blob.
	// Empty when presigning failed; the object itself is still stored.
	URL string
	// Status is "uploaded" once the blob is in the bucket.
	Status string
}
