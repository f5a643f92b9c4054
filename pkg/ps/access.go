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

package ps

import (
	"fmt"
	"strconv"
	"strings"
)

// Access defines the type alias for process access rights. Access rights are
// combined with the bitwise OR operator.
type Access uint32

const (
	// Delete is required to delete the object.
	Delete Access = 0x00010000
	// ReadControl is required to read information in the security descriptor for the object, not including the SACL.
	ReadControl Access = 0x00020000
	// WriteDAC is required to modify the DACL in the security descriptor for the object.
	WriteDAC Access = 0x00040000
	// WriteOwner is required to change the owner in the security descriptor for the object.
	WriteOwner Access = 0x00080000
	// Synchronize enables a thread to wait until the object is in the signaled state.
	Synchronize Access = 0x00100000
	// StandardRightsRequired is the union of Delete, ReadControl, WriteDAC and WriteOwner.
	StandardRightsRequired Access = 0x000F0000

	// Terminate is required to terminate a process.
	Terminate Access = 0x0001
	// CreateThread is required to create a thread.
	CreateThread Access = 0x0002
	// SetSessionID is required to set the session identifier of a process.
	SetSessionID Access = 0x0004
	// VMOperation is required to perform an operation on the address space of a process.
	VMOperation Access = 0x0008
	// VMRead is required to read memory in a process.
	VMRead Access = 0x0010
	// VMWrite is required to write to memory in a process.
	VMWrite Access = 0x0020
	// DupHandle is required to duplicate a handle.
	DupHandle Access = 0x0040
	// CreateProcess is required to create a process.
	CreateProcess Access = 0x0080
	// SetQuota is required to set memory limits.
	SetQuota Access = 0x0100
	// SetInformation is required to set certain information about a process, such as its priority class or affinity mask.
	SetInformation Access = 0x0200
	// QueryInformation is required to retrieve certain information about a process, such as its token, exit code, and priority class.
	QueryInformation Access = 0x0400
	// SuspendResume is required to suspend or resume a process.
	SuspendResume Access = 0x0800
	// QueryLimitedInformation is required to retrieve the exit code, priority class, job status and image path.
	// A handle that has the QueryInformation access right is automatically granted QueryLimitedInformation.
	QueryLimitedInformation Access = 0x1000
	// SetLimitedInformation is required to set a subset of the process information, such as the CPU sets.
	SetLimitedInformation Access = 0x2000

	// AllAccess grants all possible access rights for a process object.
	AllAccess = StandardRightsRequired | Synchronize | 0xFFFF

	// DefaultAccess is the access requested when the caller doesn't specify one.
	DefaultAccess = AllAccess
)

// threadAllAccess grants all possible access rights for a thread object.
const threadAllAccess uint32 = 0x000F0000 | 0x00100000 | 0xFFFF

var accessNames = []struct {
	access Access
	name   string
}{
	{Delete, "DELETE"},
	{ReadControl, "READ_CONTROL"},
	{WriteDAC, "WRITE_DAC"},
	{WriteOwner, "WRITE_OWNER"},
	{Synchronize, "SYNCHRONIZE"},
	{Terminate, "TERMINATE"},
	{CreateThread, "CREATE_THREAD"},
	{SetSessionID, "SET_SESSIONID"},
	{VMOperation, "VM_OPERATION"},
	{VMRead, "VM_READ"},
	{VMWrite, "VM_WRITE"},
	{DupHandle, "DUP_HANDLE"},
	{CreateProcess, "CREATE_PROCESS"},
	{SetQuota, "SET_QUOTA"},
	{SetInformation, "SET_INFORMATION"},
	{QueryInformation, "QUERY_INFORMATION"},
	{SuspendResume, "SUSPEND_RESUME"},
	{QueryLimitedInformation, "QUERY_LIMITED_INFORMATION"},
	{SetLimitedInformation, "SET_LIMITED_INFORMATION"},
}

// Has determines if all the rights in other are present.
func (access Access) Has(other Access) bool { return access&other == other }

// String returns the human-readable representation of the access rights.
func (access Access) String() string {
	if access == AllAccess {
		return "ALL_ACCESS"
	}
	if access == 0 {
		return "NONE"
	}
	var (
		names []string
		rest  = access
	)
	for _, a := range accessNames {
		if access&a.access != 0 {
			names = append(names, a.name)
			rest &^= a.access
		}
	}
	if rest != 0 {
		names = append(names, fmt.Sprintf("0x%x", uint32(rest)))
	}
	return strings.Join(names, "|")
}

// ParseAccess parses the access rights in the form produced by String, for
// example QUERY_LIMITED_INFORMATION|SET_INFORMATION. Hexadecimal literals
// are accepted as well.
func ParseAccess(s string) (Access, error) {
	var access Access
	for _, tok := range strings.Split(s, "|") {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		switch tok {
		case "":
			continue
		case "ALL_ACCESS":
			access |= AllAccess
			continue
		case "STANDARD_RIGHTS_REQUIRED":
			access |= StandardRightsRequired
			continue
		}
		if strings.HasPrefix(tok, "0X") {
			n, err := strconv.ParseUint(tok[2:], 16, 32)
			if err != nil {
				return 0, fmt.Errorf("invalid access mask %q: %v", tok, err)
			}
			access |= Access(n)
			continue
		}
		var found bool
		for _, a := range accessNames {
			if a.name == tok {
				access |= a.access
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown access right %q", tok)
		}
	}
	if access == 0 {
		return 0, fmt.Errorf("no access rights in %q", s)
	}
	return access, nil
}
