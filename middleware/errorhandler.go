package middleware

// ErrorHandlerFunc maps an error from further down the chain.
type ErrorHandlerFunc func(*Context, error) error

// ErrorHandler handles errors in the middleware chain
type ErrorHandler struct {
	handler ErrorHandlerFunc
}

// NewErrorHandler creates an error handling middleware
func NewErrorHandler(handler ErrorHandlerFunc) *ErrorHandler {
	return &ErrorHandler{handler: handler}
}

func (m *ErrorHandler) Name() string {
	return "ErrorHandler"
}

func (m *ErrorHandler) Execute(ctx *Context, next Handler) error {
	err := next(ctx)
	if err != nil && m.handler != nil {
		return m.handler(ctx, err)
	}
	return err
}
