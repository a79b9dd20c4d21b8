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

// Package preprocess provides request preprocessors for invoker
// dispatchers: static headers, credentials and OAuth2 bearer tokens.
package preprocess

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/tombee/httpinvoke/pkg/invoker"
)

// Chain runs preprocessors in order and stops at the first error.
// Nil entries are skipped.
func Chain(ps ...invoker.Preprocessor) invoker.Preprocessor {
	return invoker.PreprocessorFunc(func(ctx context.Context, req *invoker.Request) error {
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Process(ctx, req); err != nil {
				return err
			}
		}
		return nil
	})
}

// StaticHeaders sets headers the request does not already carry.
func StaticHeaders(headers map[string]string) invoker.Preprocessor {
	copied := make(map[string]string, len(headers))
	for k, v := range headers {
		copied[k] = v
	}
	return invoker.PreprocessorFunc(func(_ context.Context, req *invoker.Request) error {
		for k, v := range copied {
			if !hasHeader(req, k) {
				setHeader(req, k, v)
			}
		}
		return nil
	})
}

// Bearer sets "Authorization: Bearer <token>".
func Bearer(token string) invoker.Preprocessor {
	return invoker.PreprocessorFunc(func(_ context.Context, req *invoker.Request) error {
		if token == "" {
			return fmt.Errorf("bearer auth requires token")
		}
		setHeader(req, "Authorization", "Bearer "+token)
		return nil
	})
}

// Basic sets HTTP Basic authentication.
func Basic(username, password string) invoker.Preprocessor {
	return invoker.PreprocessorFunc(func(_ context.Context, req *invoker.Request) error {
		if username == "" {
			return fmt.Errorf("basic auth requires username")
		}
		if password == "" {
			return fmt.Errorf("basic auth requires password")
		}
		encoded := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		setHeader(req, "Authorization", "Basic "+encoded)
		return nil
	})
}

// APIKey sets an API key under a custom header.
func APIKey(header, value string) invoker.Preprocessor {
	return invoker.PreprocessorFunc(func(_ context.Context, req *invoker.Request) error {
		if header == "" {
			return fmt.Errorf("api_key auth requires header name")
		}
		if value == "" {
			return fmt.Errorf("api_key auth requires value")
		}
		setHeader(req, header, value)
		return nil
	})
}

// OAuth2 authorizes requests with tokens from ts. Wrap ts in
// oauth2.ReuseTokenSource to cache tokens between calls.
func OAuth2(ts oauth2.TokenSource) invoker.Preprocessor {
	return invoker.PreprocessorFunc(func(_ context.Context, req *invoker.Request) error {
		token, err := ts.Token()
		if err != nil {
			return fmt.Errorf("acquire OAuth2 token: %w", err)
		}
		if !token.Valid() {
			return fmt.Errorf("acquire OAuth2 token: token is invalid or expired")
		}
		setHeader(req, "Authorization", token.Type()+" "+token.AccessToken)
		return nil
	})
}

// ClientCredentials authorizes requests using the OAuth2 client credentials
// flow. Tokens are cached until they expire. The token client is taken from
// ctx under oauth2.HTTPClient when present.
func ClientCredentials(ctx context.Context, cfg *clientcredentials.Config) (invoker.Preprocessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("client credentials config is required")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client_id is required for client credentials flow")
	}
	if cfg.TokenURL == "" {
		return nil, fmt.Errorf("token_url is required for client credentials flow")
	}
	return OAuth2(cfg.TokenSource(ctx)), nil
}

// RefreshToken authorizes requests using the refresh token grant.
func RefreshToken(ctx context.Context, cfg *oauth2.Config, refreshToken string) (invoker.Preprocessor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("oauth2 config is required")
	}
	if refreshToken == "" {
		return nil, fmt.Errorf("refresh_token is required for refresh token flow")
	}
	return OAuth2(cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})), nil
}

// hasHeader reports whether req carries name, compared case-insensitively.
func hasHeader(req *invoker.Request, name string) bool {
	for k := range req.Headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// setHeader replaces any header matching name case-insensitively.
func setHeader(req *invoker.Request, name, value string) {
	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	for k := range req.Headers {
		if strings.EqualFold(k, name) {
			delete(req.Headers, k)
		}
	}
	req.Headers[http.CanonicalHeaderKey(name)] = value
}
