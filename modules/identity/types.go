package identity

// IssueTokenRequest represents a token issue request.
type IssueTokenRequest struct {
	MemberID   string `json:"member_id"`
	MemberName string `json:"member_name"`
}

// IssueTokenResponse represents a token issue response.
type IssueTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	TokenType string `json:"token_type"`
}

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse represents a token validation response.
type ValidateTokenResponse struct {
	Valid      bool   `json:"valid"`
	MemberID   string `json:"member_id,omitempty"`
	MemberName string `json:"member_name,omitempty"`
	Error      string `json:"error,omitempty"`
}
