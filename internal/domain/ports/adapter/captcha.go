package adapter

import "context"

// CaptchaVerifier validates a client-supplied challenge token.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, clientIP string) (bool, error)
}
