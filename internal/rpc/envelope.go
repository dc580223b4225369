package rpc

import "encoding/json"

// 响应码沿用 HTTP 状态码语义。
const (
	CodeOK         = 200
	CodeBadRequest = 400
	CodeForbidden  = 403
	CodeNotFound   = 404
	CodeTimeout    = 408
	CodeInternal   = 500
)

// Envelope 统一响应信封 {code, data?, msg?}。
// worker 写入信箱、responder 回给调用方的都是这个结构，原样透传。
type Envelope struct {
	Code int         `json:"code"`
	Data interface{} `json:"data,omitempty"`
	Msg  string      `json:"msg,omitempty"`
}

// OK 成功响应。
func OK(data interface{}) Envelope {
	return Envelope{Code: CodeOK, Data: data}
}

// Fail 失败响应。
func Fail(code int, msg string) Envelope {
	return Envelope{Code: code, Msg: msg}
}

// Encode 序列化信封。
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// DecodeEnvelope 反序列化信封。
func DecodeEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(data, &e)
	return e, err
}
