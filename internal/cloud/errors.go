package cloud

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

func apiErrorCode(err error) (string, string, bool) {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return "", "", false
	}
	return apiErr.ErrorCode(), apiErr.ErrorMessage(), true
}

// isStackMissing matches CloudFormation's "Stack with id X does not exist".
func isStackMissing(err error) bool {
	code, msg, ok := apiErrorCode(err)
	return ok && code == "ValidationError" && strings.Contains(msg, "does not exist")
}

// isNoUpdates matches CloudFormation's "No updates are to be performed."
func isNoUpdates(err error) bool {
	code, msg, ok := apiErrorCode(err)
	return ok && code == "ValidationError" && strings.Contains(strings.ToLower(msg), "no updates are to be performed")
}

func hasCode(err error, codes ...string) bool {
	code, _, ok := apiErrorCode(err)
	if !ok {
		return false
	}
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}
