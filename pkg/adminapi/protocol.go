// Package adminapi serves the supervisor's control surface over TLS: a
// single JSON POST endpoint matching original_source's warp-based REST API,
// plus a Prometheus metrics endpoint and a websocket event-tailing stream.
package adminapi

import (
	"github.com/ezorch/ezorch/pkg/eventlog"
	"github.com/ezorch/ezorch/pkg/lvs"
)

// RequestKind tags a ClientRequest's variant.
type RequestKind string

const (
	RequestPing      RequestKind = "Ping"
	RequestGetTarget RequestKind = "GetTarget"
	RequestSetTarget RequestKind = "SetTarget"
	RequestStatus    RequestKind = "Status"
)

// ClientRequest is the control surface's wire request, tagged by Kind; only
// the fields relevant to Kind are populated.
type ClientRequest struct {
	Kind   RequestKind `json:"type"`
	Target string      `json:"target,omitempty"`
}

// ResponseKind tags a ClientResponse's variant.
type ResponseKind string

const (
	ResponsePong    ResponseKind = "Pong"
	ResponseSuccess ResponseKind = "Success"
	ResponseTarget  ResponseKind = "Target"
	ResponseStatus  ResponseKind = "Status"
	ResponseError   ResponseKind = "Error"
)

// ClientResponse is the control surface's wire response.
type ClientResponse struct {
	Kind    ResponseKind     `json:"type"`
	Message string           `json:"message,omitempty"`
	Target  string           `json:"target,omitempty"`
	Status  string           `json:"status,omitempty"`
	Events  []eventlog.Event `json:"events,omitempty"`
	IPVS    *lvs.State       `json:"ipvs_state,omitempty"`
}
