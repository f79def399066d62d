package http

import (
	"time"

	"github.com/rrrobertsson/airmango-admin-panel/internal/domain"
)

// ErrorResponse represents a generic error payload.
type ErrorResponse struct {
	Error string `json:"error" example:"invalid credentials"`
}

// SuccessResponse denotes a simple success flag.
type SuccessResponse struct {
	Success bool `json:"success" example:"true"`
}

// AuthUser is the sanitized user returned by auth and user endpoints.
type AuthUser struct {
	ID        string    `json:"id" example:"9fd13fd2-63c5-4f29-a210-4a1a8e285f74"`
	Email     string    `json:"email" example:"editor@airmango.test"`
	FullName  *string   `json:"full_name,omitempty" example:"Anna Editor"`
	Role      string    `json:"role" example:"admin"`
	CreatedAt time.Time `json:"created_at" example:"2024-01-01T12:00:00Z"`
}

func toAuthUser(user *domain.User) AuthUser {
	return AuthUser{
		ID:        user.ID.String(),
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// LoginRequest carries email login fields.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"editor@airmango.test"`
	Password string `json:"password" validate:"required" example:"StrongPass!23"`
}

// AuthTokenResponse is returned by endpoints that issue JWT tokens.
type AuthTokenResponse struct {
	Token     string   `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt string   `json:"expires_at" example:"2024-01-02T09:30:00Z"`
	User      AuthUser `json:"user"`
}

// UsersMeta describes pagination metadata for user listings.
type UsersMeta struct {
	Limit  int `json:"limit" example:"100"`
	Offset int `json:"offset" example:"0"`
	Count  int `json:"count" example:"2"`
}

type UsersListResponse struct {
	Users []AuthUser `json:"users"`
	Meta  UsersMeta  `json:"meta"`
}

// TripRequest is the JSON document sent in the "payload" field of a trip save.
// File slots name multipart file fields of the same request.
type TripRequest struct {
	Title       string       `json:"title" example:"Iceland ring road"`
	Description string       `json:"description"`
	UserID      string       `json:"user_id,omitempty"`
	CoverImage  string       `json:"cover_image,omitempty"`
	CoverFile   string       `json:"cover_file,omitempty" example:"cover"`
	RemoveCover bool         `json:"remove_cover"`
	Days        []DayRequest `json:"days"`
}

type DayRequest struct {
	ID                string             `json:"id,omitempty"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Media             []MediaKeepRequest `json:"media,omitempty"`
	NewMedia          []string           `json:"new_media,omitempty" example:"day0_file0"`
	FeatureMediaID    string             `json:"feature_media_id,omitempty"`
	FeatureMediaIndex *int               `json:"feature_media_index,omitempty"`
	Activities        []EntityRequest    `json:"activities,omitempty"`
	Attractions       []EntityRequest    `json:"attractions,omitempty"`
	Accommodations    []EntityRequest    `json:"accommodations,omitempty"`
}

type EntityRequest struct {
	ID          string             `json:"id,omitempty"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Media       []MediaKeepRequest `json:"media,omitempty"`
	NewMedia    []string           `json:"new_media,omitempty"`
}

// MediaKeepRequest marks a stored media row as kept or removed.
type MediaKeepRequest struct {
	ID   string `json:"id"`
	Keep bool   `json:"keep"`
}

type TripSaveResponse struct {
	TripID        string   `json:"trip_id"`
	Uploaded      int      `json:"uploaded"`
	FailedUploads []string `json:"failed_uploads"`
	RemovedMedia  int      `json:"removed_media"`
}

type MediaResponse struct {
	ID   string           `json:"id"`
	URL  string           `json:"url"`
	Type domain.MediaType `json:"type"`
}

type EntityResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description *string         `json:"description,omitempty"`
	Media       []MediaResponse `json:"media"`
}

type DayResponse struct {
	ID              string           `json:"id"`
	Title           string           `json:"title"`
	Description     *string          `json:"description,omitempty"`
	OrderIndex      int              `json:"order_index"`
	FeatureMedia    *MediaResponse   `json:"feature_media,omitempty"`
	Media           []MediaResponse  `json:"media"`
	Activities      []EntityResponse `json:"activities"`
	Attractions     []EntityResponse `json:"attractions"`
	Accommodations  []EntityResponse `json:"accommodations"`
	UnassignedMedia []MediaResponse  `json:"unassigned_media,omitempty"`
}

type TripResponse struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description *string       `json:"description,omitempty"`
	CoverImage  *string       `json:"cover_image,omitempty"`
	UserID      *string       `json:"user_id,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Days        []DayResponse `json:"days"`
}
