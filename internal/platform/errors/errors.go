package errors

import (
	stderrors "errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/status"
)

// Domain is the error domain for equitalks errors.
const Domain = "equitalks.com"

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human-readable message
	Metadata map[string]string // Additional context (ids, symbols)
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Kind returns the failure class of the error code.
func (e *Error) Kind() Kind {
	return e.Code.Kind()
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error with metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// CodeOf returns the domain code of err, CodeUnknown for foreign errors.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	if domainErr, ok := As(err); ok {
		return domainErr.Code
	}
	return CodeUnknown
}

// KindOf returns the failure class of err. Foreign errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return CodeOf(err).Kind()
}

// ToGRPCStatus converts err to a gRPC status carrying an ErrorInfo detail.
// Internal failures keep their cause out of the public message.
func ToGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		if _, isDomain := As(err); !isDomain {
			return err
		}
	}
	domainErr, ok := As(err)
	if !ok {
		domainErr = Wrap(CodeInternal, "internal error", err)
	}
	message := domainErr.Message
	if domainErr.Kind() == KindInternal {
		message = "internal error"
	}

	grpcCode := domainErr.Code.GRPCCode()
	st := status.New(grpcCode, message)
	detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   string(domainErr.Code),
		Domain:   Domain,
		Metadata: domainErr.Metadata,
	})
	if detailErr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// FromGRPCStatus rebuilds a domain error from a status produced by ToGRPCStatus.
func FromGRPCStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok || st == nil {
		return err
	}
	for _, detail := range st.Details() {
		if info, ok := detail.(*errdetails.ErrorInfo); ok && info.GetDomain() == Domain {
			return WithMetadata(Code(info.GetReason()), st.Message(), info.GetMetadata())
		}
	}
	return err
}
