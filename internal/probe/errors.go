package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/url"
)

// Probe error kinds. Timeout and connection failures are transient and may be
// retried; TLS failures and redirect loops are deterministic and are not.
var (
	ErrTimeout          = errors.New("request timed out")
	ErrConnection       = errors.New("connection failed")
	ErrTLS              = errors.New("tls verification failed")
	ErrTooManyRedirects = errors.New("too many redirects")
)

// Kind is the serializable name of a probe error class.
type Kind string

const (
	KindNone       Kind = ""
	KindTimeout    Kind = "timeout"
	KindConnection Kind = "connection"
	KindTLS        Kind = "tls"
	KindRedirects  Kind = "too-many-redirects"
	KindCancelled  Kind = "cancelled"
	KindUnknown    Kind = "unknown"
)

// Classify maps an error returned by Client.Fetch (or a context) to a Kind.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrTLS):
		return KindTLS
	case errors.Is(err, ErrTooManyRedirects):
		return KindRedirects
	case errors.Is(err, ErrConnection):
		return KindConnection
	default:
		return KindUnknown
	}
}

// IsTransient reports whether a failed probe is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnection)
}

// classify wraps a raw transport error with the matching sentinel so callers
// can use errors.Is without knowing net/http internals.
func classify(err error) error {
	if err == nil {
		return nil
	}

	// The redirect-cap error set by CheckRedirect arrives wrapped in a
	// *url.Error.
	if errors.Is(err, ErrTooManyRedirects) {
		return ErrTooManyRedirects
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return wrap(ErrTLS, err)
	}
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidCert x509.CertificateInvalidError
	var recordErr tls.RecordHeaderError
	if errors.As(err, &unknownAuth) || errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidCert) || errors.As(err, &recordErr) {
		return wrap(ErrTLS, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return wrap(ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return wrap(ErrTimeout, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return wrap(ErrTimeout, err)
	}

	if errors.Is(err, context.Canceled) {
		return context.Canceled
	}

	return wrap(ErrConnection, err)
}

func wrap(kind, cause error) error {
	return &kindError{kind: kind, cause: cause}
}

// kindError keeps the original transport error reachable while making the
// sentinel the primary identity of the failure.
type kindError struct {
	kind  error
	cause error
}

func (e *kindError) Error() string { return e.kind.Error() + ": " + e.cause.Error() }

func (e *kindError) Is(target error) bool { return target == e.kind }

func (e *kindError) Unwrap() error { return e.cause }
