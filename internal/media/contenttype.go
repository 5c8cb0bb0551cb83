package media

import (
	"path/filepath"
	"strings"
)

// OctetStream is the fallback content type.
const OctetStream = "application/octet-stream"

var imageTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

var fileTypes = map[string]string{
	"pdf":  "application/pdf",
	"doc":  "application/msword",
	"docx": "application/msword",
	"xls":  "application/vnd.ms-excel",
	"xlsx": "application/vnd.ms-excel",
	"ppt":  "application/vnd.ms-powerpoint",
	"pptx": "application/vnd.ms-powerpoint",
	"zip":  "application/zip",
	"rar":  "application/x-rar-compressed",
	"txt":  "text/plain",
	"json": "application/json",
	"xml":  "application/xml",
	"html": "text/html",
	"htm":  "text/html",
	"css":  "text/css",
	"js":   "application/javascript",
	"mp3":  "audio/mpeg",
	"mp4":  "video/mp4",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
}

// ImageContentType returns the content type of a decrypted image.
func ImageContentType(path string) string {
	return lookup(imageTypes, path)
}

// FileContentType returns the content type of a downloaded file.
func FileContentType(path string) string {
	return lookup(fileTypes, path)
}

func lookup(table map[string]string, path string) string {
	// Attachment paths come from a Windows session; accept both separators.
	path = strings.ReplaceAll(path, `\`, "/")
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ct, ok := table[ext]; ok {
		return ct
	}
	return OctetStream
}
