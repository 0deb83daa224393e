package directory

// LookupRequest is the request for resolving a member identity.
type LookupRequest struct {
	MemberID string `json:"member_id"`
}

// LookupResponse is the response to a directory lookup.
type LookupResponse struct {
	Found      bool   `json:"found"`
	MemberID   string `json:"member_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
}

// UpsertRequest is the request for creating or updating a directory entry.
type UpsertRequest struct {
	MemberID   string `json:"member_id"`
	Name       string `json:"name"`
	Department string `json:"department"`
	Position   string `json:"position"`
}

// UpsertResponse is the response after an upsert.
type UpsertResponse struct {
	MemberID string `json:"member_id"`
}
