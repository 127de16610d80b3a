package types

// Response 统一响应信封：{success:true,data} 或 {success:false,error}.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK 构造成功响应.
func OK(data any) Response { return Response{Success: true, Data: data} }

// Err 构造失败响应.
func Err(msg string) Response { return Response{Success: false, Error: msg} }

// ItemFailure 批处理中的单项失败.
type ItemFailure struct {
	ItemID   string `json:"item_id"`
	ItemName string `json:"item_name"`
	Error    string `json:"error"`
}
