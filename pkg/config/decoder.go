/*
 * Copyright 2021-present by Nedim Sabic Sabic
 * https://www.fibratus.io
 * All Rights Reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

func decode(input, output interface{}) error {
	var decoderConfig = &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           output,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			cpusDecodeHook(),
		),
	}
	decoder, err := mapstructure.NewDecoder(decoderConfig)
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// cpusDecodeHook accepts the processor list given as YAML sequence,
// e.g. [0, 1, 4], in addition to the list notation string.
func cpusDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to.Kind() != reflect.String || from.Kind() != reflect.Slice {
			return data, nil
		}
		items, ok := data.([]interface{})
		if !ok {
			return data, nil
		}
		cpus := make([]string, 0, len(items))
		for _, item := range items {
			var s string
			if err := mapstructure.WeakDecode(item, &s); err != nil {
				return nil, err
			}
			cpus = append(cpus, s)
		}
		return strings.Join(cpus, ","), nil
	}
}
