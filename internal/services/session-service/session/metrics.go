package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_tokens_issued_total", Help: "Refresh tokens minted (login and rotation)",
	})
	mRotated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_tokens_rotated_total", Help: "Successful refresh-token rotations",
	})
	mReuseDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_token_reuse_detected_total", Help: "Consumed tokens re-presented (theft signal)",
	})
	mExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_tokens_expired_total", Help: "Rotations rejected on expiry",
	})
)
