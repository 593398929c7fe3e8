package notify

import (
	"context"

	"github.com/yakoovad/scrapyard-registration/internal/model"
)

type Kind string

const (
	KindMemberVerification Kind = "member_verification"
	KindLeaderVerification Kind = "leader_verification"
	KindCompletion         Kind = "completion"
	KindStaffOTP           Kind = "staff_otp"
)

type Message struct {
	To   string
	Kind Kind
	Data any
}

type VerificationData struct {
	Name       string
	TeamName   string
	VerifyLink string
	// FinishLink is only set for leaders.
	FinishLink string
}

type CompletionData struct {
	Name     string
	TeamName string
	TeamID   string
}

type OTPData struct {
	Code       string
	TTLMinutes int
}

// Sender delivers one message. Implementations must be safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// CompletionNotifier tells staff a team has been submitted for review.
type CompletionNotifier interface {
	NotifyCompletion(ctx context.Context, bundle *model.ReviewBundle) error
}

type nopNotifier struct{}

func NewNopNotifier() CompletionNotifier {
	return nopNotifier{}
}

func (nopNotifier) NotifyCompletion(context.Context, *model.ReviewBundle) error {
	return nil
}
