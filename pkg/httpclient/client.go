// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpclient

import (
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// New creates an HTTP client with TLS 1.2 minimum, connection pooling and
// the logging transport. Returns an error if the configuration is invalid.
func New(cfg Config) (*http.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	perHost := cfg.MaxIdleConnsPerHost
	if perHost == 0 {
		perHost = 10
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	base := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: perHost,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: newLoggingTransport(base, cfg.UserAgent, logger),
		Timeout:   cfg.Timeout,
	}, nil
}

// Wrap returns a copy of client whose transport goes through the logging
// transport. The original client is left untouched. Clients built by New are
// returned as they are.
func Wrap(client *http.Client, userAgent string, logger *slog.Logger) *http.Client {
	if client == nil {
		return nil
	}
	if _, ok := client.Transport.(*loggingTransport); ok {
		return client
	}
	if userAgent == "" {
		userAgent = DefaultConfig().UserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}
	wrapped := *client
	wrapped.Transport = newLoggingTransport(client.Transport, userAgent, logger)
	return &wrapped
}
