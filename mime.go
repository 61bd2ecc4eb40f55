package sigbak

// mimeExtensions maps a backup attachment's MIME type to the file
// extension an external collaborator (e.g. a maildir exporter) should
// use when writing it out, per spec.md §6. Not exhaustive — unknown
// MIME types are the caller's problem, signaled by the second return
// value.
var mimeExtensions = map[string]string{
	"application/gzip":           "gz",
	"application/pdf":            "pdf",
	"application/rtf":            "rtf",
	"application/vnd.oasis.opendocument.text":         "odt",
	"application/vnd.oasis.opendocument.spreadsheet":  "ods",
	"application/vnd.oasis.opendocument.presentation": "odp",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   "docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         "xlsx",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": "pptx",
	"application/vnd.rar":            "rar",
	"application/x-7z-compressed":    "7z",
	"application/x-bzip2":            "bz2",
	"application/x-tar":              "tar",
	"application/zip":                "zip",
	"audio/aac":                      "mp3",
	"audio/flac":                     "mp3",
	"audio/ogg":                      "mp3",
	"audio/mp4":                      "mp3",
	"audio/mpeg":                     "mp3",
	"image/gif":                      "gif",
	"image/jpeg":                     "jpg",
	"image/png":                      "png",
	"image/svg+xml":                  "svg",
	"image/tiff":                     "tiff",
	"image/webp":                     "webp",
	"text/html":                      "txt",
	"text/plain":                     "txt",
	"text/x-signal-plain":            "txt",
	"video/mp4":                      "mpg",
	"video/mpeg":                     "mpg",
}

// MIMEExtension returns the file extension associated with mime, and
// whether one is known.
func MIMEExtension(mime string) (string, bool) {
	ext, ok := mimeExtensions[mime]
	return ext, ok
}
