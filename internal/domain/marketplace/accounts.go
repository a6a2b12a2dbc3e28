package marketplace

import "time"

// Profile is the signed-in user's account record.
type Profile struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Image     string    `json:"image"`
	Role      string    `json:"role"`
	Verified  bool      `json:"isVerified"`
	CreatedAt time.Time `json:"createdAt"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type PasswordChange struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// Plan is a purchasable vendor subscription tier.
type Plan struct {
	ID           string   `json:"_id"`
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	DurationDays int      `json:"durationDays"`
	AdLimit      int      `json:"adLimit"`
	Features     []string `json:"features"`
	IsActive     bool     `json:"isActive"`
}

// Subscription is the user's current plan assignment.
type Subscription struct {
	ID        string    `json:"_id"`
	Plan      Plan      `json:"plan"`
	Status    string    `json:"status"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	AutoRenew bool      `json:"autoRenew"`
}

type Invoice struct {
	ID       string    `json:"_id"`
	Number   string    `json:"invoiceNumber"`
	Amount   float64   `json:"amount"`
	Status   string    `json:"status"`
	PlanName string    `json:"planName"`
	IssuedAt time.Time `json:"createdAt"`
	PaidAt   time.Time `json:"paidAt"`
}
