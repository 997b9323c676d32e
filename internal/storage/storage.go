package storage

import (
	"context"
	"strings"
)

// UploadResult contains the result of an image upload
type UploadResult struct {
	Key    string `json:"key"`
	URL    string `json:"url"`
	Bucket string `json:"bucket"`
	Region string `json:"region"`
	Size   int64  `json:"size"`
}

// ImageUploader stores post and message images and returns public URLs.
type ImageUploader interface {
	UploadImage(ctx context.Context, imageData []byte, userID, originalFilename string) (*UploadResult, error)
	DeleteImage(ctx context.Context, key string) error
}

// KeyFromURL extracts the object key from a public image URL. Returns ""
// for URLs that were not produced by UploadImage.
func KeyFromURL(url string) string {
	idx := strings.Index(url, "images/")
	if idx < 0 {
		return ""
	}
	return url[idx:]
}
