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

// Package catalog loads API definitions from YAML files and turns them into
// invoker descriptors.
//
// A catalog file holds one or more YAML documents, each describing one API:
//
//	name: users
//	prefix: ${users.host}/v1
//	retry:
//	  times: 3
//	  backoff: 200ms
//	  status: ["500-599"]
//	  errors: [timeout, connection]
//	methods:
//	  - name: get
//	    url: /users/{id}
//	    result: json
//	    params: [id]
package catalog

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Definition is one API as written in a catalog file.
type Definition struct {
	// Name identifies the API on the command line and in metrics.
	Name string `yaml:"name"`

	// Description is shown by list.
	Description string `yaml:"description,omitempty"`

	// Prefix is prepended to method URLs without a protocol.
	Prefix string `yaml:"prefix,omitempty"`

	// Retry is the API-level retry policy.
	Retry *RetryDefinition `yaml:"retry,omitempty"`

	// Headers are added to every request unless the call sets them.
	// Values may reference ${config} keys.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Auth configures request credentials.
	Auth *AuthDefinition `yaml:"auth,omitempty"`

	Methods []MethodDefinition `yaml:"methods"`

	// Source is the file the definition was read from.
	Source string `yaml:"-"`
}

// RetryDefinition is the YAML form of invoker.RetryPolicy.
type RetryDefinition struct {
	// Times is the total number of attempts.
	Times int `yaml:"times"`

	// Backoff is a Go duration string ("250ms", "1s").
	Backoff string `yaml:"backoff,omitempty"`

	// Status lists status codes or ranges ("503", "500-599").
	Status []string `yaml:"status,omitempty"`

	// Errors lists transport error kinds: timeout, connection, cancelled,
	// invalid_request or transport (any transport error).
	Errors []string `yaml:"errors,omitempty"`
}

// MethodDefinition is one operation of an API.
type MethodDefinition struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	URL         string `yaml:"url"`

	// Method is the HTTP verb. Default: GET.
	Method string `yaml:"method,omitempty"`

	// Timeout is a Go duration string.
	Timeout string `yaml:"timeout,omitempty"`

	// Result is none, text, bytes, stream, response or json. Default: text.
	Result string `yaml:"result,omitempty"`

	// Transform is a jq expression applied to json results.
	Transform string `yaml:"transform,omitempty"`

	Retry  *RetryDefinition  `yaml:"retry,omitempty"`
	Params []ParamDefinition `yaml:"params,omitempty"`
}

// ParamDefinition declares one positional argument. A bare string is
// shorthand for a plain parameter with that key.
type ParamDefinition struct {
	// Kind is plain, body, headers, cookies or none. Default: plain.
	Kind string `yaml:"kind,omitempty"`
	Key  string `yaml:"key,omitempty"`
}

// UnmarshalYAML accepts both "id" and {kind: plain, key: id}.
func (p *ParamDefinition) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var key string
		if err := node.Decode(&key); err != nil {
			return err
		}
		p.Kind = ""
		p.Key = key
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: param must be a string or a mapping", node.Line)
	}
	type plain ParamDefinition
	return node.Decode((*plain)(p))
}

// AuthDefinition configures credentials. Secret values should reference
// ${config} keys so they can come from the keychain or environment.
type AuthDefinition struct {
	// Type is bearer, basic, api_key, oauth2_client_credentials or jwt.
	Type string `yaml:"type"`

	Token    string `yaml:"token,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// Header and Value configure api_key auth.
	Header string `yaml:"header,omitempty"`
	Value  string `yaml:"value,omitempty"`

	// ClientID, ClientSecret, TokenURL and Scopes configure the client
	// credentials flow.
	ClientID     string   `yaml:"client_id,omitempty"`
	ClientSecret string   `yaml:"client_secret,omitempty"`
	TokenURL     string   `yaml:"token_url,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`

	// Secret, Issuer, Subject, Audience and TTL configure self-signed
	// HS256 tokens.
	Secret   string   `yaml:"secret,omitempty"`
	Issuer   string   `yaml:"issuer,omitempty"`
	Subject  string   `yaml:"subject,omitempty"`
	Audience []string `yaml:"audience,omitempty"`
	TTL      string   `yaml:"ttl,omitempty"`
}
