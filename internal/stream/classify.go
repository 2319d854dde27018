package stream

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/url"
	"os"
	"syscall"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"

	"github.com/bft-labs/firehose/internal/domain"
)

// Classify maps an error from connecting ("connect") or reading ("read")
// to a domain.Fault. A nil error on read is a clean end of stream.
func Classify(op string, err error) *domain.Fault {
	return &domain.Fault{Kind: classifyKind(op, err), Op: op, Err: err}
}

func classifyKind(op string, err error) domain.FaultKind {
	if err == nil {
		return domain.FaultEndOfStream
	}

	var (
		statusErr  *domain.StatusError
		netErr     net.Error
		corrupt    flate.CorruptInputError
		internal   flate.InternalError
		recordErr  tls.RecordHeaderError
		alertErr   tls.AlertError
		verifyErr  *tls.CertificateVerificationError
		authErr    x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
		dnsErr     *net.DNSError
		addrErr    *net.AddrError
		hostname   url.InvalidHostError
		escapeErr  url.EscapeError
		opErr      *net.OpError
		urlErr     *url.Error
	)

	switch {
	case errors.Is(err, domain.ErrFrameTooLarge):
		return domain.FaultFrameTooLarge
	case errors.As(err, &statusErr):
		return domain.FaultHTTPStatus
	case errors.Is(err, domain.ErrReadTimeout),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &netErr) && netErr.Timeout():
		return domain.FaultTimeout
	case errors.Is(err, gzip.ErrHeader),
		errors.Is(err, gzip.ErrChecksum),
		errors.As(err, &corrupt),
		errors.As(err, &internal):
		return domain.FaultDecompress
	case errors.Is(err, io.ErrUnexpectedEOF):
		return domain.FaultIncompleteRead
	case errors.As(err, &recordErr),
		errors.As(err, &alertErr),
		errors.As(err, &verifyErr),
		errors.As(err, &authErr),
		errors.As(err, &hostErr),
		errors.As(err, &invalidErr):
		return domain.FaultTLS
	case errors.As(err, &dnsErr),
		errors.As(err, &addrErr),
		errors.As(err, &hostname),
		errors.As(err, &escapeErr),
		errors.As(err, &urlErr) && urlErr.Op == "parse":
		return domain.FaultURL
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, net.ErrClosed),
		errors.As(err, &opErr):
		return domain.FaultSocket
	case errors.Is(err, io.EOF):
		if op == "read" {
			return domain.FaultEndOfStream
		}
		// The server hung up before sending a response.
		return domain.FaultSocket
	default:
		return domain.FaultIO
	}
}
