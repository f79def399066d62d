package media

import (
	"io"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
)

const sniffLimit = 3072

// TypeFromContentType maps a declared content type onto the stored media type.
func TypeFromContentType(contentType string) domain.MediaType {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(ct, "video/"):
		return domain.MediaTypeVideo
	case strings.HasPrefix(ct, "image/"):
		return domain.MediaTypeImage
	default:
		return domain.MediaTypeOther
	}
}

// ResolveContentType returns the declared content type when it is specific,
// otherwise it sniffs the file header and finally falls back to the file
// extension.
func ResolveContentType(file domain.LocalFile) string {
	declared := strings.ToLower(strings.TrimSpace(file.ContentType))
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if file.Open != nil {
		if rc, err := file.Open(); err == nil {
			detected, derr := mimetype.DetectReader(io.LimitReader(rc, sniffLimit))
			_ = rc.Close()
			if derr == nil && detected.String() != "application/octet-stream" {
				return stripParams(detected.String())
			}
		}
	}
	_, ext := splitExtension(file.Name)
	if byExt := mime.TypeByExtension(strings.ToLower(ext)); byExt != "" {
		return stripParams(byExt)
	}
	return "application/octet-stream"
}

func stripParams(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		return strings.TrimSpace(contentType[:idx])
	}
	return contentType
}
