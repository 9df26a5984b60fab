package model

// Profile holds a display username keyed by the identity user id.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// PublicProfile is another user's profile together with their collection.
type PublicProfile struct {
	Profile  Profile       `json:"profile"`
	Sneakers []SneakerView `json:"sneakers"`
	Empty    bool          `json:"empty"`
}
