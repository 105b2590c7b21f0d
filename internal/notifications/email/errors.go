package email

import (
	"errors"

	"alertsystem/internal/types"
)

// IsBlocklistError reports whether the provider refused the recipient. Such
// failures are logged at warn level with the redacted address.
func IsBlocklistError(err error) bool {
	var appErr *types.AppError
	return errors.As(err, &appErr) && appErr.Code == types.ErrCodeEmailBlocked
}
