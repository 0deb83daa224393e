package attachments

// UploadRequest represents an attachment upload request.
type UploadRequest struct {
	Name        string `json:"name"`
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
}

// UploadResponse represents an attachment upload response.
type UploadResponse struct {
	Reference   string `json:"reference"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// FetchRequest represents an attachment fetch request.
type FetchRequest struct {
	Reference string `json:"reference"`
}

// FetchResponse represents an attachment fetch response.
type FetchResponse struct {
	Reference   string `json:"reference"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// RemoveRequest represents an attachment removal request.
type RemoveRequest struct {
	Reference string `json:"reference"`
}

// RemoveResponse represents an attachment removal response.
type RemoveResponse struct {
	Removed   bool   `json:"removed"`
	Reference string `json:"reference"`
}
