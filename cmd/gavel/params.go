// Copyright 2026 Blink Labs Software
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

package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// actionParams holds the action parameter flags of the propose command
type actionParams struct {
	raw          string
	certFile     string
	stringParams []string
	uintParams   []string
}

// build assembles the JSON parameters of an action. The raw document is
// the starting point and individual flags override its keys.
func (p *actionParams) build() ([]byte, error) {
	doc := "{}"
	if p.raw != "" {
		if !gjson.Valid(p.raw) || !gjson.Parse(p.raw).IsObject() {
			return nil, errors.New("params must be a JSON object")
		}
		doc = p.raw
	}
	var err error
	for _, param := range p.stringParams {
		key, val, ok := strings.Cut(param, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param %q: expected key=value", param)
		}
		doc, err = sjson.Set(doc, key, val)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", key, err)
		}
	}
	for _, param := range p.uintParams {
		key, val, ok := strings.Cut(param, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param %q: expected key=value", param)
		}
		num, err := strconv.ParseUint(val, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", key, err)
		}
		doc, err = sjson.Set(doc, key, num)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", key, err)
		}
	}
	if p.certFile != "" {
		cert, err := os.ReadFile(p.certFile)
		if err != nil {
			return nil, fmt.Errorf("reading certificate: %w", err)
		}
		doc, err = sjson.Set(
			doc,
			"certificate",
			base64.StdEncoding.EncodeToString(cert),
		)
		if err != nil {
			return nil, fmt.Errorf("param certificate: %w", err)
		}
	}
	return []byte(doc), nil
}
