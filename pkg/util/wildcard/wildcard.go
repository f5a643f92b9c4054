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

// Package wildcard matches process image names and paths against
// patterns with the '*' and '?' metacharacters.
package wildcard

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Match reports whether str matches the pattern. The '*' metacharacter
// matches any sequence of characters, including the empty one, and '?'
// matches exactly one character. The comparison is case-sensitive.
func Match(pattern, str string) bool {
	var (
		p, s         int
		starP, starS = -1, 0
		plen, slen   = len(pattern), len(str)
	)

	for s < slen {
		if p < plen {
			switch pattern[p] {
			case '*':
				starP, starS = p, s
				p++
				continue
			case '?':
				_, size := utf8.DecodeRuneInString(str[s:])
				p++
				s += size
				continue
			default:
				pr, psize := utf8.DecodeRuneInString(pattern[p:])
				sr, ssize := utf8.DecodeRuneInString(str[s:])
				if pr == sr {
					p += psize
					s += ssize
					continue
				}
			}
		}
		if starP < 0 {
			return false
		}
		// let the last star swallow one more character and retry
		_, size := utf8.DecodeRuneInString(str[starS:])
		starS += size
		p, s = starP+1, starS
	}

	for p < plen && pattern[p] == '*' {
		p++
	}
	return p == plen
}

// MatchFold is like Match but compares the characters under Unicode
// case folding. Image names on Windows are case-insensitive, so this is
// the variant used to select processes.
func MatchFold(pattern, str string) bool {
	fold := cases.Fold()
	return Match(fold.String(pattern), fold.String(str))
}

// HasWildcards determines whether the pattern contains any metacharacter.
func HasWildcards(pattern string) bool {
	return strings.ContainsAny(pattern, "*?")
}
