// Package fopbridge translates HTTP query strings into find arguments and
// shapes delegate results into response bodies.
package fopbridge

// RecordID is the data model used when returning a create/update ID.
type RecordID struct {
	ID string `json:"id"`
}

// CodeResponse provides a standard response with code and message
type CodeResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func NewCodeResponse(code, message string) CodeResponse {
	return CodeResponse{Code: code, Message: message}
}

// RecordResponse wraps a single record
type RecordResponse[T any] struct {
	Record T `json:"record"`
}

func NewRecordResponse[T any](record T) RecordResponse[T] {
	return RecordResponse[T]{Record: record}
}

// NonPaginatedRecords wraps a complete result list.
type NonPaginatedRecords[T any] struct {
	Records []T `json:"records"`
}

func NewNonPaginatedRecords[T any](records []T) NonPaginatedRecords[T] {
	if records == nil {
		records = []T{}
	}
	return NonPaginatedRecords[T]{Records: records}
}

// CountResponse carries the result of a count.
type CountResponse struct {
	Count int64 `json:"count"`
}

// AffectedResponse carries the number of rows a bulk write touched.
type AffectedResponse struct {
	Count int64 `json:"count"`
}
