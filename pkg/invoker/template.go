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

package invoker

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/tombee/httpinvoke/pkg/property"
)

var (
	configPattern   = regexp.MustCompile(`\$\{([^/]+?)\}`)
	pathPattern     = regexp.MustCompile(`\{([^/]+?)\}`)
	protocolPattern = regexp.MustCompile(`^[a-zA-Z].+://`)
)

// hasProtocol reports whether url starts with a scheme such as "https://".
func hasProtocol(url string) bool {
	return protocolPattern.MatchString(url)
}

// fillConfigVariables replaces every ${key} in url with its resolved value.
// Substitution is literal: a value that itself contains ${...} is not
// expanded again by the same call.
func fillConfigVariables(url string, r property.Resolver, logger *slog.Logger) (string, error) {
	for _, key := range placeholderKeys(configPattern, url) {
		value, ok := "", false
		if r != nil {
			value, ok = r.Lookup(key)
		}
		if !ok {
			logger.Warn("url needs a configuration variable that was not provided",
				slog.String("url", url),
				slog.String("key", key))
			return "", configVariableMissing(key, url)
		}
		url = strings.ReplaceAll(url, "${"+key+"}", value)
	}
	return url, nil
}

// fillPathVariables replaces every {key} in url with data[key] and removes
// the key from data. Missing or nil values are logged; with strict set they
// fail the call, otherwise the placeholder is left in place.
func fillPathVariables(url string, data map[string]any, strict bool, logger *slog.Logger) (string, error) {
	for _, key := range placeholderKeys(pathPattern, url) {
		value, ok := data[key]
		if !ok || isNil(value) {
			logger.Warn("url needs a path variable that was not provided",
				slog.String("url", url),
				slog.String("key", key),
				slog.Bool("strict", strict))
			if strict {
				return "", pathVariableMissing(key, url)
			}
			continue
		}
		delete(data, key)
		url = strings.ReplaceAll(url, "{"+key+"}", fmt.Sprint(value))
	}
	return url, nil
}

// placeholderKeys returns the distinct keys matched by re, in order of first
// appearance.
func placeholderKeys(re *regexp.Regexp, s string) []string {
	matches := re.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, dup := seen[m[1]]; dup {
			continue
		}
		seen[m[1]] = struct{}{}
		keys = append(keys, m[1])
	}
	return keys
}
