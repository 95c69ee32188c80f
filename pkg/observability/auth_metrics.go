package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AuthMetrics counts auth and mail outcomes
type AuthMetrics struct {
	signups          metric.Int64Counter
	logins           metric.Int64Counter
	otpVerifications metric.Int64Counter
	tokenRefreshes   metric.Int64Counter
	mailDispatches   metric.Int64Counter
}

// NewAuthMetrics registers the counters on meter
func NewAuthMetrics(meter metric.Meter) (*AuthMetrics, error) {
	m := &AuthMetrics{}
	var err error

	if m.signups, err = meter.Int64Counter("auth_signups_total",
		metric.WithDescription("Accounts registered through signup")); err != nil {
		return nil, fmt.Errorf("failed to create signups counter: %w", err)
	}

	if m.logins, err = meter.Int64Counter("auth_logins_total",
		metric.WithDescription("Login attempts by result")); err != nil {
		return nil, fmt.Errorf("failed to create logins counter: %w", err)
	}

	if m.otpVerifications, err = meter.Int64Counter("auth_otp_verifications_total",
		metric.WithDescription("OTP verification attempts by result")); err != nil {
		return nil, fmt.Errorf("failed to create otp counter: %w", err)
	}

	if m.tokenRefreshes, err = meter.Int64Counter("auth_token_refreshes_total",
		metric.WithDescription("Refresh token rotations by result")); err != nil {
		return nil, fmt.Errorf("failed to create refresh counter: %w", err)
	}

	if m.mailDispatches, err = meter.Int64Counter("mail_dispatch_total",
		metric.WithDescription("Outgoing mail by result")); err != nil {
		return nil, fmt.Errorf("failed to create mail counter: %w", err)
	}

	return m, nil
}

func (m *AuthMetrics) RecordSignup(ctx context.Context) {
	m.signups.Add(ctx, 1)
}

func (m *AuthMetrics) RecordLogin(ctx context.Context, result string) {
	m.logins.Add(ctx, 1, withResult(result))
}

func (m *AuthMetrics) RecordOTPVerification(ctx context.Context, result string) {
	m.otpVerifications.Add(ctx, 1, withResult(result))
}

func (m *AuthMetrics) RecordTokenRefresh(ctx context.Context, result string) {
	m.tokenRefreshes.Add(ctx, 1, withResult(result))
}

func (m *AuthMetrics) RecordMailDispatch(ctx context.Context, result string) {
	m.mailDispatches.Add(ctx, 1, withResult(result))
}

func withResult(result string) metric.AddOption {
	return metric.WithAttributes(attribute.String("result", result))
}
