package httpdto

import "storefront-support/internal/domain/message"

type UploadResponse struct {
	URL     string            `json:"url"`
	Type    string            `json:"type"`
	Replies []message.Message `json:"replies"`
}
