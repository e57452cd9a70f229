package auth

// Result is the only value credential-affecting operations hand back to UI
// code. Provider errors never cross this boundary.
type Result struct {
	Success bool   `json:"success,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ok is the successful Result.
func Ok() Result {
	return Result{Success: true}
}

// Fail wraps a user-facing message.
func Fail(message string) Result {
	return Result{Error: message}
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Success && r.Error == ""
}
