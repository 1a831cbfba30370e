// Package pagination normalizes page sizes and page tokens for list RPCs.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPageToken is returned when a page token cannot be decoded.
var ErrInvalidPageToken = errors.New("invalid page token")

// PageSizeConfig configures page size normalization.
type PageSizeConfig struct {
	Default int
	Max     int
}

// ClampPageSize applies defaults and limits for page sizes.
func ClampPageSize(value int32, cfg PageSizeConfig) int {
	pageSize := int(value)
	if pageSize <= 0 {
		pageSize = cfg.Default
	}
	if cfg.Max > 0 && pageSize > cfg.Max {
		pageSize = cfg.Max
	}
	if pageSize <= 0 {
		pageSize = 1
	}
	return pageSize
}

// offsetToken is the opaque payload behind a page token. Filter binds the
// token to the query that produced it.
type offsetToken struct {
	Offset int    `json:"o"`
	Filter string `json:"f,omitempty"`
}

// EncodeOffsetToken builds a page token that resumes at offset.
func EncodeOffsetToken(offset int, filter string) string {
	if offset <= 0 {
		return ""
	}
	data, err := json.Marshal(offsetToken{Offset: offset, Filter: filter})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeOffsetToken returns the offset stored in token. An empty token starts
// at zero. A token minted for another filter is rejected.
func DecodeOffsetToken(token string, filter string) (int, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	var decoded offsetToken
	if err := json.Unmarshal(data, &decoded); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPageToken, err)
	}
	if decoded.Offset < 0 {
		return 0, fmt.Errorf("%w: negative offset", ErrInvalidPageToken)
	}
	if decoded.Filter != filter {
		return 0, fmt.Errorf("%w: filter changed", ErrInvalidPageToken)
	}
	return decoded.Offset, nil
}

// NextOffsetToken returns the token for the page after one of pageSize rows
// starting at offset, or "" when the page was short.
func NextOffsetToken(offset, pageSize, returned int, filter string) string {
	if pageSize <= 0 || returned < pageSize {
		return ""
	}
	return EncodeOffsetToken(offset+returned, filter)
}
