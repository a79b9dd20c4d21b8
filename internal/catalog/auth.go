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

package catalog

import (
	"context"
	"fmt"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/tombee/httpinvoke/pkg/errors"
	"github.com/tombee/httpinvoke/pkg/invoker"
	"github.com/tombee/httpinvoke/pkg/preprocess"
	"github.com/tombee/httpinvoke/pkg/property"
)

// Auth types accepted in catalog files.
const (
	AuthBearer            = "bearer"
	AuthBasic             = "basic"
	AuthAPIKey            = "api_key"
	AuthClientCredentials = "oauth2_client_credentials"
	AuthJWT               = "jwt"
)

func (a *AuthDefinition) validate(field string) error {
	if a == nil {
		return nil
	}
	var missing string
	switch a.Type {
	case AuthBearer:
		if a.Token == "" {
			missing = "token"
		}
	case AuthBasic:
		switch {
		case a.Username == "":
			missing = "username"
		case a.Password == "":
			missing = "password"
		}
	case AuthAPIKey:
		switch {
		case a.Header == "":
			missing = "header"
		case a.Value == "":
			missing = "value"
		}
	case AuthClientCredentials:
		switch {
		case a.ClientID == "":
			missing = "client_id"
		case a.TokenURL == "":
			missing = "token_url"
		}
	case AuthJWT:
		if a.Secret == "" {
			missing = "secret"
		}
		if _, err := parseDuration(a.TTL); err != nil {
			return &errors.ValidationError{Field: field + ".ttl", Message: err.Error()}
		}
	default:
		return &errors.ValidationError{
			Field:       field + ".type",
			Message:     fmt.Sprintf("unsupported auth type %q", a.Type),
			SuggestText: "use one of bearer, basic, api_key, oauth2_client_credentials, jwt",
		}
	}
	if missing != "" {
		return &errors.ValidationError{
			Field:   field + "." + missing,
			Message: fmt.Sprintf("%s auth requires %s", a.Type, missing),
		}
	}
	return nil
}

// Preprocessor builds the request preprocessor for the definition's headers
// and auth. Values are expanded against r. It returns nil when the
// definition declares neither.
func (d *Definition) Preprocessor(ctx context.Context, r property.Resolver) (invoker.Preprocessor, error) {
	var chain []invoker.Preprocessor

	if len(d.Headers) > 0 {
		headers := make(map[string]string, len(d.Headers))
		for k, v := range d.Headers {
			expanded, err := property.Expand(r, v)
			if err != nil {
				return nil, errors.Wrapf(err, "%s.headers.%s", d.Name, k)
			}
			headers[k] = expanded
		}
		chain = append(chain, preprocess.StaticHeaders(headers))
	}

	if d.Auth != nil {
		p, err := d.Auth.preprocessor(ctx, r)
		if err != nil {
			return nil, errors.Wrapf(err, "%s.auth", d.Name)
		}
		chain = append(chain, p)
	}

	if len(chain) == 0 {
		return nil, nil
	}
	return preprocess.Chain(chain...), nil
}

func (a *AuthDefinition) preprocessor(ctx context.Context, r property.Resolver) (invoker.Preprocessor, error) {
	var firstErr error
	expand := func(s string) string {
		v, err := property.Expand(r, s)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	}

	var p invoker.Preprocessor
	switch a.Type {
	case AuthBearer:
		p = preprocess.Bearer(expand(a.Token))
	case AuthBasic:
		p = preprocess.Basic(expand(a.Username), expand(a.Password))
	case AuthAPIKey:
		p = preprocess.APIKey(a.Header, expand(a.Value))
	case AuthClientCredentials:
		cfg := &clientcredentials.Config{
			ClientID:     expand(a.ClientID),
			ClientSecret: expand(a.ClientSecret),
			TokenURL:     expand(a.TokenURL),
			Scopes:       a.Scopes,
		}
		if firstErr != nil {
			return nil, firstErr
		}
		return preprocess.ClientCredentials(ctx, cfg)
	case AuthJWT:
		ttl, _ := parseDuration(a.TTL)
		cfg := preprocess.JWTConfig{
			Secret:   []byte(expand(a.Secret)),
			Issuer:   expand(a.Issuer),
			Subject:  expand(a.Subject),
			Audience: a.Audience,
			TTL:      ttl,
		}
		if firstErr != nil {
			return nil, firstErr
		}
		return preprocess.JWT(cfg)
	default:
		return nil, fmt.Errorf("unsupported auth type %q", a.Type)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return p, nil
}
