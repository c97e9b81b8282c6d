package azure

import (
	"errors"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
)

// IsNotFound checks if an error indicates a resource was not found.
func IsNotFound(err error) bool {
	return hasStatusCode(err, http.StatusNotFound)
}

// IsConflict checks if an error indicates a conflicting in-flight operation.
// Conflicts occur while another operation holds the resource (a pending SAS
// export, a running provisioning action) and are retryable.
func IsConflict(err error) bool {
	return hasStatusCode(err, http.StatusConflict)
}

// IsRateLimited checks if an error indicates API throttling.
func IsRateLimited(err error) bool {
	return hasStatusCode(err, http.StatusTooManyRequests)
}

// isRetryable reports whether the operation may succeed on a later attempt.
func isRetryable(err error) bool {
	return IsConflict(err) || IsRateLimited(err)
}

func hasStatusCode(err error, codes ...int) bool {
	if err == nil {
		return false
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		for _, code := range codes {
			if respErr.StatusCode == code {
				return true
			}
		}
	}
	return false
}
