package maestro

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Session event names.
const (
	EventJoin     = "join"
	EventRequest  = "chiedo"
	EventResponse = "rispondo"
)

// Request kinds carried in tipoChiamata.
const (
	CallParameters = 0
	CallCommand    = 1
)

// clientType identifies the bridge to the cloud as the mobile app does.
const clientType = "Android-App"

// JoinRequest subscribes the session to a stove.
type JoinRequest struct {
	SerialNumber string `json:"serialNumber"`
	MACAddress   string `json:"macAddress"`
	Type         string `json:"type"`
}

// Request asks the cloud to forward a request to the stove.
type Request struct {
	SerialNumber string `json:"serialNumber"`
	MACAddress   string `json:"macAddress"`
	CallType     int    `json:"tipoChiamata"`
	Request      string `json:"richiesta"`
}

// Response carries a status frame back from the stove.
type Response struct {
	Frame string `json:"stringaRicevuta"`
}

// Device identifies the stove on the cloud.
type Device struct {
	SerialNumber string
	MACAddress   string
}

// Join builds the join payload for the device.
func (d Device) Join() JoinRequest {
	return JoinRequest{
		SerialNumber: d.SerialNumber,
		MACAddress:   d.MACAddress,
		Type:         clientType,
	}
}

// Request builds a request payload for the device.
func (d Device) Request(callType int, request string) Request {
	return Request{
		SerialNumber: d.SerialNumber,
		MACAddress:   d.MACAddress,
		CallType:     callType,
		Request:      request,
	}
}

// ParseResponse decodes a rispondo payload. A payload without a frame
// yields ErrEmptyResponse.
func ParseResponse(payload []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return Response{}, fmt.Errorf("parsing response: %w", err)
	}
	if strings.TrimSpace(resp.Frame) == "" {
		return Response{}, ErrEmptyResponse
	}
	return resp, nil
}
