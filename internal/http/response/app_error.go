package response

// AppError error resolved for the API boundary
type AppError struct {
	Code    int
	Tag     string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError wraps err with a status, tag and public message. An empty tag is derived from code.
func WrapError(code int, tag, message string, err error) *AppError {
	if tag == "" {
		tag = TagForCode(code)
	}
	return &AppError{
		Code:    code,
		Tag:     tag,
		Message: message,
		Err:     err,
	}
}
