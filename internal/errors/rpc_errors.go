// ABOUTME: Detailed JSON-RPC error objects with explanations and suggested actions
// ABOUTME: Every constructor returns a *jsonrpc.Error whose data member is an ErrorData

package errors

import (
	"fmt"
	"log"
	"time"

	"github.com/harper/jsonrpcd/internal/jsonrpc"
)

// ErrorData is carried in the data member of every error built here.
type ErrorData struct {
	ErrorType        string                 `json:"error_type"`
	Explanation      string                 `json:"explanation"`
	PossibleCauses   []string               `json:"possible_causes,omitempty"`
	SuggestedActions []string               `json:"suggested_actions,omitempty"`
	RelevantState    map[string]interface{} `json:"relevant_state,omitempty"`
	Recoverable      bool                   `json:"recoverable"`
	Details          string                 `json:"details,omitempty"`
}

func build(code int, message string, data ErrorData) *jsonrpc.Error {
	base := &jsonrpc.Error{Code: code, Message: message}
	withData, err := base.WithData(data)
	if err != nil {
		log.Printf("failed to marshal error data: %v", err)
		return base
	}
	return withData
}

func NewParseError(details string) *jsonrpc.Error {
	return build(jsonrpc.ParseError, "Parse error", ErrorData{
		ErrorType:   "parse_error",
		Explanation: "The message is not valid JSON, so no request could be read from it.",
		PossibleCauses: []string{
			"Missing quotes around strings",
			"Trailing commas in objects or arrays",
			"Incomplete JSON structure (missing closing braces or brackets)",
		},
		SuggestedActions: []string{
			"Validate the payload with a JSON linter before sending",
			"Check that the whole message was written to the transport",
		},
		Recoverable: true,
		Details:     details,
	})
}

func NewInvalidRequestError(details string) *jsonrpc.Error {
	return build(jsonrpc.InvalidRequest, "Invalid Request", ErrorData{
		ErrorType:   "invalid_request",
		Explanation: "The JSON is well formed but is not a valid JSON-RPC 2.0 request object.",
		PossibleCauses: []string{
			"The 'jsonrpc' member is missing or not exactly \"2.0\"",
			"The 'method' member is missing or not a string",
			"The 'params' member is present but is not an object or array",
			"The 'id' member is fractional, negative, or not a string or number",
			"A batch is empty or contains non-object elements",
		},
		SuggestedActions: []string{
			"Send {\"jsonrpc\": \"2.0\", \"method\": \"...\", \"id\": 1}",
			"Omit 'id' only for notifications that need no response",
		},
		Recoverable: true,
		Details:     details,
	})
}

func NewMethodNotFoundError(methodName string, available []string) *jsonrpc.Error {
	return build(jsonrpc.MethodNotFound, "Method not found", ErrorData{
		ErrorType:   "method_not_found",
		Explanation: fmt.Sprintf("No handler is registered for method '%s'.", methodName),
		PossibleCauses: []string{
			"The method name is misspelled (names are case-sensitive)",
			"The method is not registered on this server",
		},
		SuggestedActions: []string{
			"Call system.methods to list registered methods",
		},
		RelevantState: map[string]interface{}{
			"method_name":       methodName,
			"available_methods": available,
		},
		Recoverable: true,
	})
}

// NewReservedMethodError answers calls into the rpc. namespace that the
// server does not provide itself.
func NewReservedMethodError(methodName string) *jsonrpc.Error {
	return build(jsonrpc.MethodNotFound, "Method not found", ErrorData{
		ErrorType:   "reserved_method",
		Explanation: fmt.Sprintf("Method '%s' is in the reserved rpc. namespace and is not an extension provided by this server.", methodName),
		SuggestedActions: []string{
			"Use a method name that does not begin with 'rpc.'",
		},
		RelevantState: map[string]interface{}{
			"method_name": methodName,
		},
		Recoverable: true,
	})
}

func NewInvalidParamsError(paramName string, expectedType string, details string) *jsonrpc.Error {
	return build(jsonrpc.InvalidParams, "Invalid params", ErrorData{
		ErrorType:   "invalid_params",
		Explanation: fmt.Sprintf("The parameter '%s' does not match the method's schema; expected %s.", paramName, expectedType),
		PossibleCauses: []string{
			"A required parameter is missing or null",
			"The parameter has the wrong type",
			"Positional params were sent where named params are expected, or the reverse",
		},
		RelevantState: map[string]interface{}{
			"param_name":    paramName,
			"expected_type": expectedType,
		},
		Recoverable: true,
		Details:     details,
	})
}

func NewInternalError(details string) *jsonrpc.Error {
	return build(jsonrpc.InternalError, "Internal error", ErrorData{
		ErrorType:   "internal_error",
		Explanation: "The server failed while executing the method.",
		SuggestedActions: []string{
			"Retry the request; the failure may be transient",
			"Check the server logs for the matching request id",
		},
		Recoverable: false,
		Details:     details,
	})
}

func NewCancelledError(id jsonrpc.ID) *jsonrpc.Error {
	return build(jsonrpc.RequestCancelled, "Request cancelled", ErrorData{
		ErrorType:   "request_cancelled",
		Explanation: "The request was cancelled before its handler finished.",
		PossibleCauses: []string{
			"An rpc.cancel notification named this id",
			"The connection carrying the request was closed",
		},
		RelevantState: map[string]interface{}{
			"id": id.String(),
		},
		Recoverable: true,
	})
}

func NewTimeoutError(methodName string, timeout time.Duration) *jsonrpc.Error {
	return build(jsonrpc.HandlerTimeout, "Handler timeout", ErrorData{
		ErrorType:   "handler_timeout",
		Explanation: fmt.Sprintf("Method '%s' did not finish within %s.", methodName, timeout),
		SuggestedActions: []string{
			"Retry with a smaller workload",
			"Raise dispatch.handler_timeout in the server config",
		},
		RelevantState: map[string]interface{}{
			"method_name": methodName,
			"timeout_ms":  timeout.Milliseconds(),
		},
		Recoverable: true,
	})
}

func NewRateLimitedError(methodName string) *jsonrpc.Error {
	return build(jsonrpc.RateLimited, "Rate limited", ErrorData{
		ErrorType:   "rate_limited",
		Explanation: "The server is receiving calls faster than its configured rate.",
		SuggestedActions: []string{
			"Back off and retry the request",
		},
		RelevantState: map[string]interface{}{
			"method_name": methodName,
		},
		Recoverable: true,
	})
}

func NewDuplicateIDError(id jsonrpc.ID) *jsonrpc.Error {
	return build(jsonrpc.DuplicateID, "Duplicate request id", ErrorData{
		ErrorType:   "duplicate_id",
		Explanation: fmt.Sprintf("A request with id %s is already in flight on this connection.", id),
		SuggestedActions: []string{
			"Use a unique id for every concurrent request",
			"Wait for the earlier response before reusing the id",
		},
		RelevantState: map[string]interface{}{
			"id": id.String(),
		},
		Recoverable: true,
	})
}

func NewBatchTooLargeError(size, limit int) *jsonrpc.Error {
	return build(jsonrpc.BatchTooLarge, "Batch too large", ErrorData{
		ErrorType:   "batch_too_large",
		Explanation: fmt.Sprintf("The batch holds %d requests; this server accepts at most %d.", size, limit),
		SuggestedActions: []string{
			"Split the batch into smaller batches",
		},
		RelevantState: map[string]interface{}{
			"batch_size": size,
			"max_size":   limit,
		},
		Recoverable: true,
	})
}

// FromEntry enriches the canonical error of a decode failure.
func FromEntry(entry jsonrpc.Entry) *jsonrpc.Error {
	if entry.Err == nil {
		return nil
	}

	details := ""
	if entry.Cause != nil {
		details = entry.Cause.Error()
	}

	switch entry.Err.Code {
	case jsonrpc.ParseError:
		return NewParseError(details)
	case jsonrpc.InvalidRequest:
		return NewInvalidRequestError(details)
	}
	return entry.Err
}

// DescribeCode reports what the server knows about an arbitrary code. It
// never fails: undefined codes are described rather than rejected.
func DescribeCode(code int) map[string]interface{} {
	category, err := jsonrpc.Classify(code)
	desc := map[string]interface{}{
		"code":     code,
		"category": category.String(),
		"defined":  err == nil,
	}
	if err != nil {
		desc["note"] = fmt.Sprintf("code %d is outside the standard table and the server range %d..%d",
			code, jsonrpc.ServerErrorMin, jsonrpc.ServerErrorMax)
	}
	return desc
}
