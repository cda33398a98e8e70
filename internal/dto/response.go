package dto

// Response is the single envelope of every endpoint.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Message string     `json:"message,omitempty"`
	Error   *BaseError `json:"error,omitempty"`
}

func OK(data any, msg string) Response {
	return Response{Success: true, Data: data, Message: msg}
}

type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type ProductList struct {
	Products any      `json:"products"`
	Meta     PageMeta `json:"meta"`
}
