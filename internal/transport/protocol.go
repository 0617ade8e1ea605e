// Copyright 2026 The Attune Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package transport carries the side panel protocol over websockets.
// Requests carry a correlation ID the response echoes back; lifecycle
// events are pushed to every connected panel uncorrelated.
package transport

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/attuneai/attune/internal/report"
)

// MessageType identifies the kind of protocol message.
type MessageType string

const (
	MessageTypeRequest  MessageType = "request"
	MessageTypeResponse MessageType = "response"
	MessageTypeEvent    MessageType = "event"
	MessageTypeError    MessageType = "error"
)

// Request methods.
const (
	MethodSubmit    = "workflow.submit"
	MethodCancel    = "workflow.cancel"
	MethodList      = "workflow.list"
	MethodStatus    = "workflow.status"
	MethodTelemetry = "telemetry.snapshot"
)

// Pushed event names.
const (
	EventStatusChanged    = "statusChanged"
	EventReportReady      = "reportReady"
	EventTelemetryUpdated = "telemetryUpdated"
)

// Error codes.
const (
	CodeBusy          = "busy"
	CodeNotFound      = "not_found"
	CodeInvalidParams = "invalid_params"
	CodeInternal      = "internal"
)

// Message is the envelope for every frame in both directions.
type Message struct {
	Type MessageType `json:"type"`

	// CorrelationID links a response to its request. Events omit it.
	CorrelationID string `json:"correlationId,omitempty"`

	// Method names the operation (request only).
	Method string `json:"method,omitempty"`

	// Event names the notification (event only).
	Event string `json:"event,omitempty"`

	Params json.RawMessage `json:"params,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`

	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse is the structured error payload.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// SubmitParams starts a workflow run.
type SubmitParams struct {
	WorkflowID string `json:"workflowId"`
	Input      string `json:"input,omitempty"`
}

// SubmitResult acknowledges an accepted submission.
type SubmitResult struct {
	RunID      string `json:"runId"`
	Generation uint64 `json:"generation"`
}

// CancelParams aborts the in-flight run of a workflow.
type CancelParams struct {
	WorkflowID string `json:"workflowId"`
}

// CancelResult reports whether a run was actually cancelled.
type CancelResult struct {
	Cancelled bool `json:"cancelled"`
}

// StatusPayload is pushed on every run state change.
type StatusPayload struct {
	WorkflowID string `json:"workflowId"`
	RunID      string `json:"runId,omitempty"`
	State      string `json:"state"`
}

// ReportPayload is pushed when an interpreted report is ready.
type ReportPayload struct {
	WorkflowID string         `json:"workflowId"`
	RunID      string         `json:"runId"`
	Report     *report.Report `json:"report"`
	Target     string         `json:"target"`
	Layout     string         `json:"layout"`
	Markdown   string         `json:"markdown,omitempty"`
}

// NewRequest builds a request with a fresh correlation ID.
func NewRequest(method string, params any) (*Message, error) {
	msg := &Message{
		Type:          MessageTypeRequest,
		CorrelationID: uuid.NewString(),
		Method:        method,
	}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal params: %w", err)
		}
		msg.Params = data
	}
	return msg, nil
}

// NewResponse builds a successful response echoing the correlation ID.
func NewResponse(correlationID string, result any) (*Message, error) {
	msg := &Message{
		Type:          MessageTypeResponse,
		CorrelationID: correlationID,
	}
	if result != nil {
		data, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		msg.Result = data
	}
	return msg, nil
}

// NewErrorMessage builds an error response.
func NewErrorMessage(correlationID, code, message string, details map[string]any) *Message {
	return &Message{
		Type:          MessageTypeError,
		CorrelationID: correlationID,
		Error: &ErrorResponse{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// NewEvent builds a pushed notification.
func NewEvent(event string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}
	return &Message{
		Type:   MessageTypeEvent,
		Event:  event,
		Result: data,
	}, nil
}
