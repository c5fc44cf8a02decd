package handler

// Response is the envelope every ops endpoint returns. Count is only set
// for list responses so operators can page failed notifications without
// counting the data array themselves.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewListResponse(data interface{}, count int) *Response {
	return &Response{
		Status: "success",
		Data:   data,
		Count:  &count,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}
