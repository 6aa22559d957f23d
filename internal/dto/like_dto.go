package dto

// LikeRequest casts a vote. Repeating the same vote withdraws it.
type LikeRequest struct {
	TargetType string `json:"targetType" validate:"required,oneof=answer comment"`
	Target     string `json:"target" validate:"required"`
	IsLiked    *bool  `json:"isLiked" validate:"required"`
}

// LikeResponse returns the tally after the vote was applied.
type LikeResponse struct {
	TargetType string    `json:"targetType"`
	Target     string    `json:"target"`
	Votes      VoteTally `json:"votes"`
}
