package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gistapp/gist/internal/model"
)

// ValidationIssue is a single field validation failure reported by the backend.
type ValidationIssue struct {
	// Location is the path of the invalid field (e.g. "body.answers").
	Location string
	Message  string
	Type     string
}

// APIError is a non 2xx answer of the backend.
type APIError struct {
	StatusCode int
	Detail     string
	Validation []ValidationIssue
}

func (e *APIError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "backend returned status %d", e.StatusCode)
	if e.Detail != "" {
		fmt.Fprintf(&sb, ": %s", e.Detail)
	}
	for _, v := range e.Validation {
		fmt.Fprintf(&sb, "; %s: %s", v.Location, v.Message)
	}
	return sb.String()
}

// Unwrap maps the status code to the model sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return model.ErrNotValid
	case http.StatusNotFound:
		return model.ErrNotFound
	case http.StatusConflict:
		return model.ErrAlreadyExists
	}
	return nil
}

type errorJSON struct {
	Detail json.RawMessage `json:"detail"`
}

type validationIssueJSON struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var ej errorJSON
	if err := json.Unmarshal(data, &ej); err != nil || len(ej.Detail) == 0 {
		apiErr.Detail = strings.TrimSpace(string(data))
		return apiErr
	}

	// Detail is either a plain message or a list of validation issues.
	var detail string
	if err := json.Unmarshal(ej.Detail, &detail); err == nil {
		apiErr.Detail = detail
		return apiErr
	}

	var issues []validationIssueJSON
	if err := json.Unmarshal(ej.Detail, &issues); err == nil {
		for _, i := range issues {
			locs := make([]string, 0, len(i.Loc))
			for _, l := range i.Loc {
				locs = append(locs, fmt.Sprint(l))
			}
			apiErr.Validation = append(apiErr.Validation, ValidationIssue{
				Location: strings.Join(locs, "."),
				Message:  i.Msg,
				Type:     i.Type,
			})
		}
		return apiErr
	}

	apiErr.Detail = string(ej.Detail)
	return apiErr
}
