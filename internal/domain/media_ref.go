package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// MediaRefKind tells whether a stored media reference was a bare URL or a
// legacy JSON envelope of the form {"url": ..., "type": ...}.
type MediaRefKind int

const (
	MediaRefPlain MediaRefKind = iota
	MediaRefEnveloped
)

// MediaRef is a stored media reference resolved once at read time.
type MediaRef struct {
	Kind MediaRefKind
	URL  string
	Type MediaType
}

func PlainRef(url string) MediaRef {
	return MediaRef{Kind: MediaRefPlain, URL: url}
}

func EnvelopedRef(url string, mediaType MediaType) MediaRef {
	return MediaRef{Kind: MediaRefEnveloped, URL: url, Type: mediaType}
}

type mediaEnvelope struct {
	URL  string    `json:"url"`
	Type MediaType `json:"type,omitempty"`
}

// ParseMediaRef resolves a raw column value. Values that look like a JSON
// object but carry no url are kept verbatim as a plain reference.
func ParseMediaRef(raw string) MediaRef {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		var env mediaEnvelope
		if err := json.Unmarshal([]byte(trimmed), &env); err == nil && env.URL != "" {
			return EnvelopedRef(env.URL, env.Type)
		}
	}
	return PlainRef(trimmed)
}

// TypeOr returns the envelope's type, or fallback for plain references.
func (r MediaRef) TypeOr(fallback MediaType) MediaType {
	if r.Kind == MediaRefEnveloped && r.Type != "" {
		return r.Type
	}
	return fallback
}

func (r MediaRef) IsZero() bool {
	return r.URL == ""
}

func (r MediaRef) String() string {
	return r.URL
}

// Scan implements sql.Scanner.
func (r *MediaRef) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = MediaRef{}
	case string:
		*r = ParseMediaRef(v)
	case []byte:
		*r = ParseMediaRef(string(v))
	default:
		return fmt.Errorf("media ref: unsupported column type %T", src)
	}
	return nil
}

// Value implements driver.Valuer. References are always written back as
// plain URLs.
func (r MediaRef) Value() (driver.Value, error) {
	if r.URL == "" {
		return nil, nil
	}
	return r.URL, nil
}

func (r MediaRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.URL)
}

func (r *MediaRef) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		var env mediaEnvelope
		if envErr := json.Unmarshal(data, &env); envErr != nil {
			return err
		}
		*r = EnvelopedRef(env.URL, env.Type)
		return nil
	}
	*r = ParseMediaRef(raw)
	return nil
}
