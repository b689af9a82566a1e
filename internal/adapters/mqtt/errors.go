package mqtt

import "errors"

// Sentinel errors for the MQTT adapter.
var (
	ErrConnect        = errors.New("mqtt connect failed")
	ErrNotConnected   = errors.New("mqtt client not connected")
	ErrInvalidPayload = errors.New("invalid observation payload")
	ErrMissingStation = errors.New("station id missing from topic and payload")
)
