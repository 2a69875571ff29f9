// Package udsclient is a reference diagnostic client: the tester-side
// counterpart to the simulator's server-side uds package. It sends request
// payloads over an isotp.Session and decodes positive/negative responses,
// retrying on the two NRCs that mean "try again" rather than "request
// failed" (spec §4.3/§7).
package udsclient

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/RobertSloan22/Simulated-OBD2-UDS/isotp"
)

// Negative response codes this client can name in its errors. Only
// NRCBusyRepeatRequest and NRCResponsePending change its behavior: they
// are retried.
const (
	NRCGeneralReject             = 0x10
	NRCServiceNotSupported       = 0x11
	NRCSubFunctionNotSupported   = 0x12
	NRCIncorrectMessageLength    = 0x13
	NRCBusyRepeatRequest         = 0x21
	NRCConditionsNotCorrect      = 0x22
	NRCRequestSequenceError      = 0x24
	NRCRequestOutOfRange         = 0x31
	NRCSecurityAccessDenied      = 0x33
	NRCInvalidKey                = 0x35
	NRCExceedNumberOfAttempts    = 0x36
	NRCRequiredTimeDelayNotExpired = 0x37
	NRCResponsePending            = 0x78
)

var nrcDescriptions = map[byte]string{
	NRCGeneralReject:               "general reject",
	NRCServiceNotSupported:         "service not supported",
	NRCSubFunctionNotSupported:     "sub-function not supported",
	NRCIncorrectMessageLength:      "incorrect message length or invalid format",
	NRCBusyRepeatRequest:           "busy, repeat request",
	NRCConditionsNotCorrect:        "conditions not correct",
	NRCRequestSequenceError:        "request sequence error",
	NRCRequestOutOfRange:           "request out of range",
	NRCSecurityAccessDenied:        "security access denied",
	NRCInvalidKey:                  "invalid key",
	NRCExceedNumberOfAttempts:      "exceeded number of attempts",
	NRCRequiredTimeDelayNotExpired: "required time delay not expired",
	NRCResponsePending:             "response pending",
}

func nrcDescription(nrc byte) string {
	if desc, ok := nrcDescriptions[nrc]; ok {
		return desc
	}
	return "unknown NRC"
}

// UDSError is a negative response (SID 0x7F svc nrc).
type UDSError struct {
	ServiceID byte
	NRC       byte
}

func (e *UDSError) Error() string {
	return fmt.Sprintf("negative response: SID=0x%02X NRC=0x%02X (%s)", e.ServiceID, e.NRC, nrcDescription(e.NRC))
}

// IsRetryable reports whether the ECU is asking the client to try again
// rather than reporting a failure.
func (e *UDSError) IsRetryable() bool {
	return e.NRC == NRCBusyRepeatRequest || e.NRC == NRCResponsePending
}

// RequestOptions configures one Request call.
type RequestOptions struct {
	Timeout    time.Duration
	MaxRetries uint
	RetryDelay time.Duration
}

func DefaultRequestOptions() RequestOptions {
	return RequestOptions{
		Timeout:    500 * time.Millisecond,
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
	}
}

// Client sends UDS requests over an ISO-TP session and waits for the
// matching response, validating the response SID and surfacing negative
// responses as *UDSError.
type Client struct {
	sess *isotp.Session
}

func New(sess *isotp.Session) *Client {
	return &Client{sess: sess}
}

// Request sends payload and waits for a response with default options.
func (c *Client) Request(ctx context.Context, payload []byte) ([]byte, error) {
	return c.RequestWithOptions(ctx, payload, DefaultRequestOptions())
}

// RequestWithOptions sends payload and retries on a retryable negative
// response up to opts.MaxRetries times, waiting a fixed opts.RetryDelay
// between attempts.
func (c *Client) RequestWithOptions(ctx context.Context, payload []byte, opts RequestOptions) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("udsclient: request payload must not be empty")
	}
	expectedSID := payload[0] + 0x40

	return retry.DoWithData(
		func() ([]byte, error) {
			return c.singleRequest(ctx, payload, expectedSID, opts.Timeout)
		},
		retry.Context(ctx),
		retry.Attempts(opts.MaxRetries+1),
		retry.Delay(opts.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.RetryIf(func(err error) bool {
			var udsErr *UDSError
			return isUDSError(err, &udsErr) && udsErr.IsRetryable()
		}),
		retry.LastErrorOnly(true),
	)
}

func isUDSError(err error, target **UDSError) bool {
	ue, ok := err.(*UDSError)
	if !ok {
		return false
	}
	*target = ue
	return true
}

func (c *Client) singleRequest(ctx context.Context, payload []byte, expectedSID byte, timeout time.Duration) ([]byte, error) {
	if err := c.sess.Send(ctx, payload); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, _, err := c.sess.Recv(reqCtx)
	if err != nil {
		return nil, fmt.Errorf("udsclient: waiting for response: %w", err)
	}

	if len(resp) >= 3 && resp[0] == 0x7F {
		return nil, &UDSError{ServiceID: resp[1], NRC: resp[2]}
	}
	if len(resp) == 0 || resp[0] != expectedSID {
		return nil, fmt.Errorf("udsclient: response SID mismatch: want 0x%02X, got %v", expectedSID, resp)
	}
	return resp, nil
}
