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

package preprocess

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/tombee/httpinvoke/pkg/invoker"
)

// JWTConfig configures self-signed HS256 bearer tokens.
type JWTConfig struct {
	// Secret is the HS256 signing key (required).
	Secret []byte

	Issuer   string
	Subject  string
	Audience []string

	// TTL is the token lifetime. Default: 5 minutes
	TTL time.Duration

	// Claims are extra private claims.
	Claims map[string]any

	// now is replaced in tests.
	now func() time.Time
}

// JWT signs a fresh token for every request and sends it as a bearer token.
// Each token carries a unique jti.
func JWT(cfg JWTConfig) (invoker.Preprocessor, error) {
	if len(cfg.Secret) == 0 {
		return nil, fmt.Errorf("jwt auth requires secret")
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("jwt ttl must be >= 0, got %v", cfg.TTL)
	}
	if cfg.TTL == 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}

	return invoker.PreprocessorFunc(func(_ context.Context, req *invoker.Request) error {
		now := cfg.now()
		claims := jwt.MapClaims{
			"iat": jwt.NewNumericDate(now),
			"exp": jwt.NewNumericDate(now.Add(cfg.TTL)),
			"jti": uuid.NewString(),
		}
		for k, v := range cfg.Claims {
			claims[k] = v
		}
		if cfg.Issuer != "" {
			claims["iss"] = cfg.Issuer
		}
		if cfg.Subject != "" {
			claims["sub"] = cfg.Subject
		}
		if len(cfg.Audience) > 0 {
			claims["aud"] = cfg.Audience
		}

		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
		if err != nil {
			return fmt.Errorf("failed to sign token: %w", err)
		}
		setHeader(req, "Authorization", "Bearer "+signed)
		return nil
	}), nil
}
