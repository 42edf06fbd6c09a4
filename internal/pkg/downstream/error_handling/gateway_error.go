package error_handling

import "fmt"

// GatewayError carries either the gateway's error body or a transport failure.
type GatewayError struct {
	ResponseCode        string `json:"ResponseCode,omitempty"`
	ResponseDescription string `json:"ResponseDescription,omitempty"`
	ErrorCode           string `json:"errorCode,omitempty"`
	ErrorMessage        string `json:"errorMessage,omitempty"`
	StatusCode          int    `json:"-"`
	Err                 error  `json:"-"`
}

func NewGatewayError(err error, statusCode ...int) *GatewayError {
	errObj := &GatewayError{Err: err}
	if len(statusCode) > 0 {
		errObj.StatusCode = statusCode[0]
	}
	return errObj
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error: statusCode=%d, err:%v, responseCode=%s, errorCode=%s, desc=%s",
		e.StatusCode,
		e.Err,
		e.ResponseCode,
		e.ErrorCode,
		e.description(),
	)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func (e *GatewayError) description() string {
	if e.ErrorMessage != "" {
		return e.ErrorMessage
	}
	return e.ResponseDescription
}

// IsNonAPIError reports a failure that never produced a gateway response body.
func (e *GatewayError) IsNonAPIError() bool {
	return e.ErrorCode == "" &&
		e.ErrorMessage == "" &&
		e.ResponseCode == "" &&
		e.ResponseDescription == "" &&
		e.Err != nil
}
