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

// Package ps gives access to processes, threads and loaded modules of the local
// machine. Processes and threads own the underlying kernel handle and must be
// closed by the caller. Enumerations are backed by toolhelp snapshots that are
// walked lazily, one API call per element, and released as soon as the walk
// ends or the iterator is closed.
//
// A typical enumeration looks like this:
//
//	procs, err := ps.All()
//	if err != nil {
//		return err
//	}
//	for proc := range procs.All() {
//		name, _ := proc.Name()
//		fmt.Println(name)
//		proc.Close()
//	}
//
// Breaking out of the loop releases the snapshot handle. Elements that can't
// be opened, for example protected processes or threads that exited during
// the walk, are skipped.
package ps
