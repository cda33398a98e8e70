package dto

// BaseError: машинный код (snake_case), краткое сообщение, детали и ошибки по полям.
type BaseError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details string       `json:"details,omitempty"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// FieldError: путь к полю (например "customerPhone" или "items[0].quantity") и описание.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Tag     string `json:"tag,omitempty"`
}

// Семантические обёртки для swagger @Failure. По JSON совпадают с Response.
type ValidationErrorResponse Response
type ConflictErrorResponse Response
type UnprocessableErrorResponse Response
type UnauthorizedErrorResponse Response
type ForbiddenErrorResponse Response
type NotFoundErrorResponse Response
type BadGatewayErrorResponse Response
type InternalErrorResponse Response

func fail(e BaseError) Response {
	return Response{Success: false, Message: e.Message, Error: &e}
}

func NewValidationError(msg string, fields []FieldError) Response {
	return fail(BaseError{Code: "validation_error", Message: msg, Fields: fields})
}
func NewEmptyOrderError(msg string) Response {
	return fail(BaseError{Code: "empty_order", Message: msg})
}
func NewOutOfStockError(msg, details string) Response {
	return fail(BaseError{Code: "out_of_stock", Message: msg, Details: details})
}
func NewInvalidPromotionError(msg, details string) Response {
	return fail(BaseError{Code: "invalid_promotion", Message: msg, Details: details})
}
func NewInvalidTransitionError(msg, details string) Response {
	return fail(BaseError{Code: "invalid_transition", Message: msg, Details: details})
}
func NewAlreadyDispatchedError(msg string) Response {
	return fail(BaseError{Code: "already_dispatched", Message: msg})
}
func NewConflictError(msg string) Response {
	return fail(BaseError{Code: "conflict", Message: msg})
}
func NewUpstreamError(msg string) Response {
	return fail(BaseError{Code: "upstream_error", Message: msg})
}
func NewUnauthorizedError(msg string) Response {
	return fail(BaseError{Code: "unauthorized", Message: msg})
}
func NewForbiddenError(msg string) Response {
	return fail(BaseError{Code: "forbidden", Message: msg})
}
func NewNotFoundError(msg string) Response {
	return fail(BaseError{Code: "not_found", Message: msg})
}
func NewInternalError(details string) Response {
	return fail(BaseError{Code: "internal_error", Message: "internal server error", Details: details})
}
