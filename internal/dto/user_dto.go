package dto

// UserResponse is the public identity joined onto records at read time.
type UserResponse struct {
	ID        string  `json:"id,omitempty"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	ImageURL  *string `json:"imageUrl"`
}
