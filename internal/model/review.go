package model

import "time"

type Decision string

const (
	DecisionApprove          Decision = "approve"
	DecisionReject           Decision = "rejected"
	DecisionPaymentConfirmed Decision = "payment_confirmed"
)

// Review is the audit record of a staff transition.
type Review struct {
	ID         string     `json:"id"`
	TeamID     string     `json:"team_id"`
	Decision   Decision   `json:"decision"`
	Reason     string     `json:"reason,omitempty"`
	StaffEmail string     `json:"staff_email"`
	FromStatus TeamStatus `json:"from_status"`
	ToStatus   TeamStatus `json:"to_status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ReviewBundle is a team with every person attached, as staff review it.
type ReviewBundle struct {
	Team    *Team     `json:"team"`
	Leader  *Person   `json:"leader,omitempty"`
	Members []*Person `json:"members"`
	Teacher *Person   `json:"teacher,omitempty"`
}

type Staff struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type StaffSession struct {
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}
