package dish

import (
	"errors"

	pkgError "github.com/snapfood/snapfood-engine/pkg/error"
)

// UserMessage folds any resolution failure into the human-readable string the
// UI shows next to its retry button. No error from the resolution subsystem
// escapes as-is to a view.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var generic pkgError.GenericError
	if !errors.As(err, &generic) {
		return "Failed to fetch images, please try again later"
	}

	switch generic.ErrCode() {
	case "VALIDATION_ERROR":
		return generic.Error()
	case "RATE_LIMITED":
		return "Requests are too frequent, please try again later"
	case "NETWORK_ERROR":
		return "Network connection failed, please check your connection"
	case "INVALID_PARAMS":
		return "Invalid parameters, please check the dish information"
	case "NO_IMAGES":
		return "No matching images found"
	default:
		return "Failed to fetch images, please try again later"
	}
}
