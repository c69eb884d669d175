// Package httpc provides the shared HTTP client used to reach the robot.
// Use this instead of http.DefaultClient so every request has a deadline.
package httpc

import (
	"net"
	"net/http"
	"time"
)

// Default timeouts. Robot commands are small and the robot is on the LAN,
// so a stalled request is treated as failed quickly.
const (
	DefaultTimeout         = 5 * time.Second
	DefaultConnectTimeout  = 2 * time.Second
	DefaultKeepAlive       = 30 * time.Second
	DefaultIdleConnTimeout = 90 * time.Second
)

// Client is the shared client with DefaultTimeout.
var Client = New(DefaultTimeout)

// New creates a client with the given overall request timeout.
func New(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DefaultConnectTimeout,
				KeepAlive: DefaultKeepAlive,
			}).DialContext,
			MaxIdleConns:          16,
			MaxIdleConnsPerHost:   4,
			IdleConnTimeout:       DefaultIdleConnTimeout,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}
