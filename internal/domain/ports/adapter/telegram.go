// File: internal/domain/ports/adapter/telegram.go
package adapter

import "context"

// Sender is the single choke point for user-visible text. key is a locale
// template id; args are interpolated by the implementation.
type Sender interface {
	Send(ctx context.Context, telegramID int64, key string, args ...any) error
}

// ChatAdminChecker verifies that a user administers a group or channel.
// chatRef is either "@handle" or a numeric chat id.
//
// It fails closed: a denied or unknown membership is (false, nil). An error is
// returned only when the answer could not be obtained at all.
type ChatAdminChecker interface {
	IsChatAdmin(ctx context.Context, chatRef string, telegramID int64) (bool, error)
}
