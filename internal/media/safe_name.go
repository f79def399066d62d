package media

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SafeName derives a unique, path-safe object name from a user supplied file
// name: "<uuid>-<sanitized base><ext>". Only the last dot-delimited extension
// is kept as the extension.
func SafeName(fileName string) string {
	return safeName(uuid.NewString(), fileName)
}

func safeName(id, fileName string) string {
	base, ext := splitExtension(fileName)
	return id + "-" + unsafeNameChars.ReplaceAllString(base, "_") + sanitizeExtension(ext)
}

// ObjectPath joins an optional folder prefix and an object name.
func ObjectPath(folder, name string) string {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

func splitExtension(fileName string) (string, string) {
	dot := strings.LastIndex(fileName, ".")
	if dot < 0 {
		return fileName, ""
	}
	return fileName[:dot], fileName[dot:]
}

// sanitizeExtension keeps ordinary extensions byte for byte and replaces
// anything that would need escaping in an object path.
func sanitizeExtension(ext string) string {
	if ext == "" {
		return ""
	}
	return "." + unsafeNameChars.ReplaceAllString(ext[1:], "_")
}
