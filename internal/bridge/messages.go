package bridge

import (
	"encoding/json"
	"fmt"
)

// Reply codes for the command acknowledgement contract.
const (
	// CodeSuccess acknowledges a verified state change.
	CodeSuccess = 200

	// CodeInvalidPayload rejects a command whose payload cannot be parsed
	// or carries no usable state request.
	CodeInvalidPayload = 400

	// CodeDeviceNotFound rejects a command whose routing key matches no
	// device in the current catalog.
	CodeDeviceNotFound = 460

	// CodeNoControllableEntity rejects a command for a device that has no
	// resolved state entity to act on.
	CodeNoControllableEntity = 461

	// CodeUnconfirmed acknowledges that the action was invoked but the
	// re-read state did not match the requested value in time.
	CodeUnconfirmed = 462

	// CodeInternalError reports an action or transport failure.
	CodeInternalError = 500
)

// protocolVersion is the fixed payload version on the platform contract.
const protocolVersion = "1.0"

// Command is an inbound property-set or generic-service payload.
// The ID is kept raw so the reply echoes it byte-for-byte regardless of
// whether the platform sent it as a string or a number.
type Command struct {
	ID      json.RawMessage `json:"id"`
	Version string          `json:"version"`
	Params  map[string]any  `json:"params"`
}

// parseCommand decodes an inbound command payload.
func parseCommand(payload []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, fmt.Errorf("decoding command: %w", err)
	}
	return cmd, nil
}

// desiredState extracts the requested binary state from command params.
// The platform sends JSON numbers; strings and booleans are tolerated.
func (c Command) desiredState() (int, error) {
	raw, ok := c.Params["state"]
	if !ok {
		return 0, fmt.Errorf("no state parameter in command")
	}

	switch v := raw.(type) {
	case float64:
		if v == 0 || v == 1 {
			return int(v), nil
		}
	case string:
		if v == "0" {
			return 0, nil
		}
		if v == "1" {
			return 1, nil
		}
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}

	return 0, fmt.Errorf("unsupported state value %v", raw)
}

// Reply is the acknowledgement published for every inbound command.
type Reply struct {
	ID      json.RawMessage `json:"id"`
	Version string          `json:"version"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    map[string]any  `json:"data,omitempty"`
}

// newReply builds an acknowledgement correlated to the command.
func newReply(cmd Command, code int, message string, data map[string]any) Reply {
	id := cmd.ID
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return Reply{
		ID:      id,
		Version: protocolVersion,
		Code:    code,
		Message: message,
		Data:    data,
	}
}
