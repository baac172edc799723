package session

// Profile is the user-facing identity shown in the header.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

// Wallet is the last-known balance of the user's ez.coins wallet.
type Wallet struct {
	ID       string `json:"id"`
	ToOffer  int64  `json:"to_offer"`
	Received int64  `json:"received"`
	Balance  int64  `json:"balance"`
}

// Snapshot is the cached profile and wallet for one user identifier. It is
// replaced wholesale on every hydrate and never mutated in place.
type Snapshot struct {
	Profile Profile `json:"profile"`
	Wallet  Wallet  `json:"wallet"`
}
