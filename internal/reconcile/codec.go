package reconcile

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"task-board.com/task-board/internal/constants"
	dto "task-board.com/task-board/internal/data_models"
	model "task-board.com/task-board/internal/models"
)

const notificationSchemaURL = "https://task-board.com/schemas/notification.json"

var notificationSchema = fmt.Sprintf(`{
	"type": "object",
	"required": ["id", "type", "title", "message", "isRead", "createdAt", "userId"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"type": {"enum": [%q, %q, %q]},
		"title": {"type": "string"},
		"message": {"type": "string"},
		"isRead": {"type": "boolean"},
		"createdAt": {"type": "string", "minLength": 1},
		"userId": {"type": "string", "minLength": 1},
		"taskId": {"type": "string"},
		"taskTitle": {"type": "string"}
	}
}`,
	constants.NotificationTaskAssigned,
	constants.NotificationTaskUnassigned,
	constants.NotificationTaskStatusChanged,
)

// Codec encodes and decodes push channel frames. Notification payloads are
// checked against a JSON schema before they reach a store.
type Codec struct {
	notification *jsonschema.Schema
}

func NewCodec() (*Codec, error) {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(notificationSchema))
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(notificationSchemaURL, doc); err != nil {
		return nil, err
	}
	schema, err := compiler.Compile(notificationSchemaURL)
	if err != nil {
		return nil, err
	}
	return &Codec{notification: schema}, nil
}

func (c *Codec) Encode(event string, payload any) ([]byte, error) {
	frame := dto.PushFrame{Event: event}
	if payload != nil {
		data, err := sonic.Marshal(payload)
		if err != nil {
			return nil, err
		}
		frame.Data = data
	}
	return sonic.Marshal(frame)
}

func (c *Codec) Decode(data []byte) (dto.PushFrame, error) {
	var frame dto.PushFrame
	if err := sonic.Unmarshal(data, &frame); err != nil {
		return dto.PushFrame{}, fmt.Errorf("decode frame: %w", err)
	}
	if frame.Event == "" {
		return dto.PushFrame{}, fmt.Errorf("decode frame: missing event")
	}
	return frame, nil
}

func (c *Codec) Notification(raw []byte) (model.Notification, error) {
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return model.Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	if err := c.notification.Validate(inst); err != nil {
		return model.Notification{}, fmt.Errorf("invalid notification: %w", err)
	}
	var n model.Notification
	if err := sonic.Unmarshal(raw, &n); err != nil {
		return model.Notification{}, fmt.Errorf("decode notification: %w", err)
	}
	return n, nil
}

func (c *Codec) Authenticate(data []byte) (dto.AuthenticatePayload, error) {
	var p dto.AuthenticatePayload
	if err := sonic.Unmarshal(data, &p); err != nil {
		return dto.AuthenticatePayload{}, fmt.Errorf("decode authenticate: %w", err)
	}
	if strings.TrimSpace(p.UserID) == "" {
		return dto.AuthenticatePayload{}, fmt.Errorf("decode authenticate: missing userId")
	}
	return p, nil
}
