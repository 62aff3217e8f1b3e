// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
	"syscall"
)

// Identity is a resolved Unix account the supervisor de-escalates to.
// Children (hooks, migration) run with it via process credentials; the
// final handoff assumes it in-process before exec.
type Identity struct {
	// Username and Group are the names the identity was resolved from.
	Username string
	Group    string

	// UID and GID are the numeric identity.
	UID uint32
	GID uint32

	// Groups are the supplementary group IDs of the account.
	Groups []uint32

	// Home is the account's home directory, exported as HOME to
	// de-escalated children.
	Home string
}

// ResolveIdentity parses "user" or "user:group" and resolves it
// against the container's user database. When the group is omitted,
// the account's primary group is used.
func ResolveIdentity(spec string) (*Identity, error) {
	if spec == "" {
		return nil, fmt.Errorf("empty identity")
	}

	userName, groupName, hasGroup := strings.Cut(spec, ":")

	userInfo, err := user.Lookup(userName)
	if err != nil {
		return nil, fmt.Errorf("lookup user %q: %w", userName, err)
	}
	uid, err := strconv.Atoi(userInfo.Uid)
	if err != nil {
		return nil, fmt.Errorf("parse uid %q: %w", userInfo.Uid, err)
	}

	gidString := userInfo.Gid
	if hasGroup {
		groupInfo, err := user.LookupGroup(groupName)
		if err != nil {
			return nil, fmt.Errorf("lookup group %q: %w", groupName, err)
		}
		gidString = groupInfo.Gid
	}
	gid, err := strconv.Atoi(gidString)
	if err != nil {
		return nil, fmt.Errorf("parse gid %q: %w", gidString, err)
	}

	identity := &Identity{
		Username: userName,
		Group:    groupName,
		UID:      uint32(uid),
		GID:      uint32(gid),
		Home:     userInfo.HomeDir,
	}

	// Supplementary groups are best-effort: a container image with a
	// minimal user database may not support enumeration, and the
	// primary group is what the game's file access depends on.
	if groupIDs, err := userInfo.GroupIds(); err == nil {
		for _, groupID := range groupIDs {
			parsed, err := strconv.Atoi(groupID)
			if err != nil {
				continue
			}
			identity.Groups = append(identity.Groups, uint32(parsed))
		}
	}

	return identity, nil
}

// String returns the identity in user:group(uid:gid) form for logs.
func (id *Identity) String() string {
	name := id.Username
	if id.Group != "" {
		name += ":" + id.Group
	}
	return fmt.Sprintf("%s(%d:%d)", name, id.UID, id.GID)
}

// credential returns the process credential for running a child as
// this identity, or nil when the supervisor already runs as it (a
// container started directly as the target user needs no credential
// switch, and setting one without privilege would fail the fork).
func (id *Identity) credential() *syscall.Credential {
	if id == nil {
		return nil
	}
	if int(id.UID) == os.Geteuid() && int(id.GID) == os.Getegid() {
		return nil
	}
	return &syscall.Credential{
		Uid:    id.UID,
		Gid:    id.GID,
		Groups: id.Groups,
	}
}

// Assume permanently de-escalates the current process to the identity.
// Called immediately before exec on the managed path. Order matters:
// supplementary groups, then GID, then UID, because after the UID drop
// the process no longer has the privilege to change the others.
//
// A no-op when the process already runs as the identity.
func (id *Identity) Assume() error {
	if id.credential() == nil {
		return nil
	}

	groups := make([]int, len(id.Groups))
	for i, gid := range id.Groups {
		groups[i] = int(gid)
	}
	if err := syscall.Setgroups(groups); err != nil {
		return fmt.Errorf("setgroups: %w", err)
	}
	if err := syscall.Setgid(int(id.GID)); err != nil {
		return fmt.Errorf("setgid %d: %w", id.GID, err)
	}
	if err := syscall.Setuid(int(id.UID)); err != nil {
		return fmt.Errorf("setuid %d: %w", id.UID, err)
	}
	return nil
}
