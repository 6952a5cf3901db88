package shotgrid

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

// APIError is a non-2xx response from the REST API.
type APIError struct {
	StatusCode int
	Status     string
	Detail     string
}

type errorBody struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func newAPIError(resp *http.Response, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && len(eb.Errors) > 0 {
		msgs := make([]string, 0, len(eb.Errors))
		for _, e := range eb.Errors {
			msg := e.Detail
			if msg == "" {
				msg = e.Title
			}
			if msg != "" {
				msgs = append(msgs, msg)
			}
		}
		apiErr.Detail = strings.Join(msgs, "; ")
	} else {
		apiErr.Detail = strings.TrimSpace(string(body))
	}

	return apiErr
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("shotgrid: %s", e.Status)
	}
	return fmt.Sprintf("shotgrid: %s: %s", e.Status, e.Detail)
}

// retryable reports whether a failed search is worth repeating. Client errors
// other than 429 and rejected credentials are permanent.
func retryable(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests ||
			apiErr.StatusCode < 400 || apiErr.StatusCode >= 500
	}

	return true
}
