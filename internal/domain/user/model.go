package user

// Principal is the authenticated caller identity resolved from a bearer
// token. DisplayName is the public handle shown on leaderboards.
type Principal struct {
	UserID      string
	DisplayName string
	Email       string
}
