package models

// Rank orders customers by trust level. A customer may originate loans
// once their rank value reaches the configured threshold.
type Rank struct {
	ID    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Value int    `json:"value" db:"value"`
}

// Customer is the banking profile attached to a user. Identity and
// authentication live on the user; the customer carries rank and the
// profile fields staff search across.
type Customer struct {
	UserID     int64  `json:"user_id" db:"user_id"`
	Username   string `json:"username" db:"username"`
	FirstName  string `json:"first_name" db:"first_name"`
	LastName   string `json:"last_name" db:"last_name"`
	Email      string `json:"email" db:"email"`
	PersonalID string `json:"personal_id" db:"personal_id"`
	Phone      string `json:"phone" db:"phone"`
	RankName   string `json:"rank_name" db:"rank_name"`
	RankValue  int    `json:"rank_value" db:"rank_value"`
}

// FullName returns the customer's display name.
func (c Customer) FullName() string {
	return c.FirstName + " " + c.LastName
}
