package resource

import (
	"mime"
	"path/filepath"
	"strings"
)

const OctetStream = "application/octet-stream"

var allowed = map[string]bool{
	"text/html":        true,
	"text/plain":       true,
	"image/gif":        true,
	"image/jpeg":       true,
	"image/png":        true,
	"application/pdf":  true,
	"application/zip":  true,
	"application/gzip": true,
}

var byExtension = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".txt":  "text/plain",
	".gif":  "image/gif",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
	".gz":   "application/gzip",
	".tgz":  "application/gzip",
}

// DetectMIME returns the allow-listed type for name or OctetStream.
func DetectMIME(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := byExtension[ext]; ok {
		return t
	}

	t, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
	if err == nil && allowed[t] {
		return t
	}
	return OctetStream
}
