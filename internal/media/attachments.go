package media

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"murmur/internal/models"
)

// Input is one attachment as submitted by a client.
type Input struct {
	URL         string   `json:"url"`
	MediaType   string   `json:"mediaType,omitempty"`
	Width       *int     `json:"width,omitempty"`
	Height      *int     `json:"height,omitempty"`
	DurationSec *float64 `json:"duration_sec,omitempty"`
}

// UnmarshalJSON reads the declared type from mediaType, falling back to the
// media_type spelling the upload endpoints return.
func (in *Input) UnmarshalJSON(data []byte) error {
	type plain Input
	var raw struct {
		plain
		LegacyMediaType string `json:"media_type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*in = Input(raw.plain)
	if in.MediaType == "" {
		in.MediaType = raw.LegacyMediaType
	}
	return nil
}

// Validate applies the content-or-media rule and checks each attachment.
func Validate(content string, items []Input, max int) error {
	if len(items) > max {
		return models.NewValidationError(fmt.Sprintf("a maximum of %d media attachments is allowed", max))
	}
	if strings.TrimSpace(content) == "" && len(items) == 0 {
		return models.NewValidationError("content or media is required")
	}
	for i, item := range items {
		if err := validateItem(item); err != nil {
			return models.NewValidationError(fmt.Sprintf("media[%d]: %s", i, err))
		}
	}
	return nil
}

// ValidateItems checks attachments without the content-or-media rule. Reposts
// use it.
func ValidateItems(items []Input, max int) error {
	if len(items) > max {
		return models.NewValidationError(fmt.Sprintf("a maximum of %d media attachments is allowed", max))
	}
	for i, item := range items {
		if err := validateItem(item); err != nil {
			return models.NewValidationError(fmt.Sprintf("media[%d]: %s", i, err))
		}
	}
	return nil
}

func validateItem(item Input) error {
	raw := strings.TrimSpace(item.URL)
	if raw == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("url must be an absolute http(s) url")
	}
	if item.Width != nil && *item.Width < 0 {
		return fmt.Errorf("width must not be negative")
	}
	if item.Height != nil && *item.Height < 0 {
		return fmt.Errorf("height must not be negative")
	}
	if item.DurationSec != nil && *item.DurationSec < 0 {
		return fmt.Errorf("duration_sec must not be negative")
	}
	return nil
}

// Build resolves the stored fields for validated attachments in order.
func Build(items []Input) []models.MediaFields {
	out := make([]models.MediaFields, 0, len(items))
	for i, item := range items {
		f := models.MediaFields{
			MediaType: Classify(item.MediaType, item.URL),
			URL:       strings.TrimSpace(item.URL),
			Width:     item.Width,
			Height:    item.Height,
			SortOrder: i,
		}
		if f.MediaType == models.MediaVideo {
			f.DurationSec = item.DurationSec
		}
		out = append(out, f)
	}
	return out
}
