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

package property

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tombee/httpinvoke/pkg/errors"
)

// LoadFile loads a file source, choosing the format from the extension.
// .yaml and .yml are parsed as YAML; everything else as .properties.
func LoadFile(path string) (*MapSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAMLFile(path)
	default:
		return LoadPropertiesFile(path)
	}
}

// LoadYAMLFile reads a YAML document and flattens nested mappings into
// dotted keys. Sequence elements are addressed by index ("hosts.0").
func LoadYAMLFile(path string) (*MapSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ConfigError{Key: path, Reason: "read config error", Cause: err}
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &errors.ConfigError{Key: path, Reason: "invalid YAML", Cause: err}
	}

	values := make(map[string]string)
	flattenYAML("", doc, values)
	return &MapSource{name: "file:" + path, priority: PriorityFile, values: values}, nil
}

func flattenYAML(prefix string, node interface{}, out map[string]string) {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, child := range v {
			flattenYAML(joinKey(prefix, k), child, out)
		}
	case []interface{}:
		for i, child := range v {
			flattenYAML(joinKey(prefix, strconv.Itoa(i)), child, out)
		}
	case nil:
		if prefix != "" {
			out[prefix] = ""
		}
	default:
		out[prefix] = fmt.Sprint(v)
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// LoadPropertiesFile reads a key=value file. Lines starting with # or ! are
// comments; ':' is accepted as a separator; a trailing backslash continues
// the value on the next line.
func LoadPropertiesFile(path string) (*MapSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.ConfigError{Key: path, Reason: "read config error", Cause: err}
	}

	values, err := parseProperties(data)
	if err != nil {
		return nil, &errors.ConfigError{Key: path, Reason: "invalid properties file", Cause: err}
	}
	return &MapSource{name: "file:" + path, priority: PriorityFile, values: values}, nil
}

func parseProperties(data []byte) (map[string]string, error) {
	values := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(data))

	var pending strings.Builder
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if pending.Len() == 0 && (line == "" || line[0] == '#' || line[0] == '!') {
			continue
		}
		if strings.HasSuffix(line, `\`) {
			pending.WriteString(strings.TrimSuffix(line, `\`))
			continue
		}
		pending.WriteString(line)
		if err := putProperty(values, pending.String(), lineNo); err != nil {
			return nil, err
		}
		pending.Reset()
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if pending.Len() > 0 {
		if err := putProperty(values, pending.String(), lineNo); err != nil {
			return nil, err
		}
	}
	return values, nil
}

func putProperty(values map[string]string, logical string, lineNo int) error {
	idx := strings.IndexAny(logical, "=:")
	if idx <= 0 {
		return fmt.Errorf("line %d: expected key=value", lineNo)
	}
	values[strings.TrimSpace(logical[:idx])] = strings.TrimSpace(logical[idx+1:])
	return nil
}
