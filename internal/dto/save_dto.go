package dto

// SaveToggleRequest flips the bookmark on a question for the caller.
type SaveToggleRequest struct {
	Question string `json:"question" validate:"required"`
}

// SaveToggleResponse reports the bookmark state after the toggle.
type SaveToggleResponse struct {
	Question string `json:"question"`
	Saved    bool   `json:"saved"`
}
