package gateway

import (
	"encoding/json"

	"github.com/mbeoliero/uq/internal/entity"
)

// WSRequest represents a WebSocket request message
type WSRequest struct {
	ReqIdentifier int32           `json:"req_identifier"` // Request type
	MsgIncr       string          `json:"msg_incr"`       // Client message counter/trace Id
	OperationId   string          `json:"operation_id"`
	SendId        string          `json:"send_id"` // Sender user Id
	Data          json.RawMessage `json:"data,omitempty"`
}

// WSResponse represents a WebSocket response or push message
type WSResponse struct {
	ReqIdentifier int32           `json:"req_identifier"` // Request type (echo back)
	MsgIncr       string          `json:"msg_incr"`       // Message counter (echo back)
	OperationId   string          `json:"operation_id"`
	ErrCode       int             `json:"err_code"` // 0 = success
	ErrMsg        string          `json:"err_msg"`
	Data          json.RawMessage `json:"data,omitempty"`
}

// HeartbeatResp is the reply to WSHeartbeat
type HeartbeatResp struct {
	ServerTime int64 `json:"server_time"`
}

// PushMsgData is the payload of WSPushMsg
type PushMsgData = entity.MessageEvent
