package notify

import (
	"context"
	"log/slog"
)

// Sender delivers outbound text messages. The real transport (Twilio or
// another SMS provider) lives outside this module; anything implementing
// Sender can carry the traffic.
type Sender interface {
	Send(ctx context.Context, to, body string) error
}

// LoggerSender writes outbound messages to the structured logger. It stands
// in for the SMS transport in development and tests.
type LoggerSender struct {
	logger *slog.Logger
}

// NewLoggerSender constructs a logging sender stub.
func NewLoggerSender(logger *slog.Logger) *LoggerSender {
	return &LoggerSender{logger: logger}
}

// Send writes the message to the structured logger.
func (s *LoggerSender) Send(_ context.Context, to, body string) error {
	if s == nil || s.logger == nil {
		return nil
	}
	s.logger.Info("outbound sms", "to", to, "body", body)
	return nil
}
