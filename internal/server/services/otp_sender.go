package services

import (
	"context"

	"github.com/dmitrijs2005/budgetkeeper/internal/logging"
)

// OTPSender delivers a one-time sign-in code to the account owner.
type OTPSender interface {
	SendOTP(ctx context.Context, email, code string) error
}

// LogOTPSender writes codes to the log. Development only.
type LogOTPSender struct {
	logger logging.Logger
}

func NewLogOTPSender(logger logging.Logger) *LogOTPSender {
	return &LogOTPSender{logger: logger.With("module", "otp_sender")}
}

func (s *LogOTPSender) SendOTP(ctx context.Context, email, code string) error {
	s.logger.Info(ctx, "one-time code issued", "email", email, "code", code)
	return nil
}
