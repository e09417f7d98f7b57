package utils

import (
	"fmt"
	"mime"
	"strings"
)

const (
	// MaxImageSize is 10MB in bytes
	MaxImageSize = 10 * 1024 * 1024
	// MaxAudioSize is 10MB in bytes
	MaxAudioSize = 10 * 1024 * 1024
)

// allowedImageTypes maps accepted image content types to the file extension used for storage keys
var allowedImageTypes = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// MediaError represents a media validation error
type MediaError struct {
	Code    string
	Message string
}

func (e *MediaError) Error() string {
	return e.Message
}

// ValidateImageContentType checks that contentType is a supported image
// format and returns the file extension for it
func ValidateImageContentType(contentType string) (string, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", &MediaError{
			Code:    "INVALID_FILE_FORMAT",
			Message: fmt.Sprintf("Invalid content type %q", contentType),
		}
	}

	ext, ok := allowedImageTypes[strings.ToLower(mediaType)]
	if !ok {
		return "", &MediaError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Only PNG, JPEG and WebP images are allowed",
		}
	}
	return ext, nil
}

// ValidateAudio checks the content type and size of an uploaded audio clip
func ValidateAudio(contentType string, size int64) error {
	if size == 0 {
		return &MediaError{Code: "EMPTY_AUDIO", Message: "Audio data is required"}
	}
	if size > MaxAudioSize {
		return &MediaError{
			Code:    "FILE_TOO_LARGE",
			Message: fmt.Sprintf("Audio exceeds maximum allowed size of %d MB", MaxAudioSize/(1024*1024)),
		}
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "audio/") {
		return &MediaError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "Content-Type must be an audio type",
		}
	}
	return nil
}
