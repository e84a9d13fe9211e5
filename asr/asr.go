// Package asr turns WAV audio into text through pluggable backends:
// remote multipart endpoints, chat-completion endpoints, or the local
// whisper runtime.
package asr

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// Mode selects between keeping the source language and forcing English.
type Mode int

const (
	Transcribe Mode = iota
	Translate
)

func (m Mode) String() string {
	if m == Translate {
		return "translate"
	}
	return "transcribe"
}

// ErrProtocolMismatch is returned when a 2xx response body cannot be
// parsed into any known shape.
var ErrProtocolMismatch = errors.New("unrecognized response format")

// Backend transforms a WAV blob plus mode into text. Requests are
// one-shot and stateless with respect to each other.
type Backend interface {
	Process(ctx context.Context, wavData []byte, mode Mode, prompt string) (string, error)
}

// Translator is the text-translation hop a transcribe-only backend
// delegates to when asked for Translate mode.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// newHTTPClient builds a client with a dedicated transport and HTTP/2
// enabled. Each backend owns one with its per-request timeout.
func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:     &tls.Config{},
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if err := http2.ConfigureTransport(tr); err != nil {
		// HTTP/1.1 still works; nothing to do about it here.
		tr.ForceAttemptHTTP2 = true
	}
	return &http.Client{Transport: tr, Timeout: timeout}
}
