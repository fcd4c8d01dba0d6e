// Package storage persists uploaded audio objects.
//
// The s3 backend works against any S3-compatible endpoint and can mint
// presigned upload URLs so browsers write audio directly to the bucket.
// The local backend writes to a directory and is used by tests.
package storage
