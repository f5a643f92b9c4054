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

var schema = `
{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"definitions": {
		"duration": {"type": ["string", "integer"], "pattern": "^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$"}
	},

	"type": "object",
	"properties": {
		"config-file":	{"type": "string"},
		"access":		{"type": "string", "minLength": 1},
		"logging": {
			"type": "object",
			"properties": {
				"level": 		{"type": "string", "enum": ["panic", "fatal", "error", "warn", "warning", "info", "debug", "trace", "PANIC", "FATAL", "ERROR", "WARN", "WARNING", "INFO", "DEBUG", "TRACE"]},
				"max-age": 		{"type": "integer", "minimum": 0},
				"max-backups": 	{"type": "integer", "minimum": 0},
				"max-size": 	{"type": "integer", "minimum": 1},
				"formatter": 	{"type": "string", "enum": ["json", "text"]},
				"path": 		{"type": "string"},
				"log-stdout": 	{"type": "boolean"}
			},
			"additionalProperties": false
		},
		"tuner": {
			"type": "object",
			"properties": {
				"wait": {
					"type": "object",
					"properties": {
						"initial-interval":	{"$ref": "#/definitions/duration"},
						"max-interval":		{"$ref": "#/definitions/duration"},
						"max-elapsed":		{"$ref": "#/definitions/duration"}
					},
					"additionalProperties": false
				}
			},
			"additionalProperties": false
		},
		"profiles": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name":		{"type": "string", "minLength": 1},
					"image":	{"type": "string", "minLength": 1},
					"cpus":		{
						"oneOf": [
							{"type": "string", "pattern": "^[0-9]+(-[0-9]+)?( *, *[0-9]+(-[0-9]+)?)*$"},
							{"type": "array", "items": {"type": "integer", "minimum": 0}, "minItems": 1}
						]
					}
				},
				"required": ["name", "image", "cpus"],
				"additionalProperties": false
			}
		}
	},
	"additionalProperties": false
}
`
