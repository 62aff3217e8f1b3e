// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"os"
	"os/user"
	"strconv"
	"testing"
)

func TestResolveIdentityCurrentUser(t *testing.T) {
	t.Parallel()

	current, err := user.Current()
	if err != nil {
		t.Fatalf("user.Current: %v", err)
	}

	identity, err := ResolveIdentity(current.Username)
	if err != nil {
		t.Fatalf("ResolveIdentity(%q): %v", current.Username, err)
	}

	wantUID, err := strconv.Atoi(current.Uid)
	if err != nil {
		t.Fatalf("parsing uid %q: %v", current.Uid, err)
	}
	if int(identity.UID) != wantUID {
		t.Errorf("UID = %d, want %d", identity.UID, wantUID)
	}
	wantGID, err := strconv.Atoi(current.Gid)
	if err != nil {
		t.Fatalf("parsing gid %q: %v", current.Gid, err)
	}
	if int(identity.GID) != wantGID {
		t.Errorf("GID = %d, want %d (primary group without explicit group)", identity.GID, wantGID)
	}
	if identity.Home != current.HomeDir {
		t.Errorf("Home = %q, want %q", identity.Home, current.HomeDir)
	}
}

func TestResolveIdentityExplicitGroup(t *testing.T) {
	t.Parallel()

	current, err := user.Current()
	if err != nil {
		t.Fatalf("user.Current: %v", err)
	}
	group, err := user.LookupGroupId(current.Gid)
	if err != nil {
		t.Skipf("primary group %s has no name entry: %v", current.Gid, err)
	}

	identity, err := ResolveIdentity(current.Username + ":" + group.Name)
	if err != nil {
		t.Fatalf("ResolveIdentity: %v", err)
	}
	if identity.Group != group.Name {
		t.Errorf("Group = %q, want %q", identity.Group, group.Name)
	}
	wantGID, _ := strconv.Atoi(group.Gid)
	if int(identity.GID) != wantGID {
		t.Errorf("GID = %d, want %d", identity.GID, wantGID)
	}
}

func TestResolveIdentityErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		spec string
	}{
		{name: "empty", spec: ""},
		{name: "unknown user", spec: "gatehouse-no-such-user"},
		{name: "unknown group", spec: "root:gatehouse-no-such-group"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ResolveIdentity(test.spec); err == nil {
				t.Errorf("ResolveIdentity(%q) succeeded, want error", test.spec)
			}
		})
	}
}

func TestCredentialForCurrentIdentityIsNil(t *testing.T) {
	t.Parallel()

	identity := &Identity{
		UID: uint32(os.Geteuid()),
		GID: uint32(os.Getegid()),
	}
	if cred := identity.credential(); cred != nil {
		t.Errorf("credential() = %+v, want nil for the current identity", cred)
	}

	var none *Identity
	if cred := none.credential(); cred != nil {
		t.Errorf("credential() on nil identity = %+v, want nil", cred)
	}
}

func TestCredentialForDifferentIdentity(t *testing.T) {
	t.Parallel()

	identity := &Identity{
		UID:    uint32(os.Geteuid() + 1),
		GID:    uint32(os.Getegid() + 1),
		Groups: []uint32{7, 11},
	}
	cred := identity.credential()
	if cred == nil {
		t.Fatal("credential() = nil for a different identity")
	}
	if cred.Uid != identity.UID || cred.Gid != identity.GID {
		t.Errorf("credential = %d:%d, want %d:%d", cred.Uid, cred.Gid, identity.UID, identity.GID)
	}
	if len(cred.Groups) != 2 {
		t.Errorf("credential carries %d supplementary groups, want 2", len(cred.Groups))
	}
}

func TestAssumeCurrentIdentityIsNoop(t *testing.T) {
	// Not parallel: Assume touches process-wide credentials. For the
	// current identity it must be a pure no-op.
	identity := &Identity{
		UID: uint32(os.Geteuid()),
		GID: uint32(os.Getegid()),
	}
	if err := identity.Assume(); err != nil {
		t.Fatalf("Assume() for current identity: %v", err)
	}
}

func TestIdentityString(t *testing.T) {
	t.Parallel()

	withGroup := &Identity{Username: "evennia", Group: "games", UID: 1000, GID: 60}
	if got := withGroup.String(); got != "evennia:games(1000:60)" {
		t.Errorf("String() = %q", got)
	}
	withoutGroup := &Identity{Username: "evennia", UID: 1000, GID: 1000}
	if got := withoutGroup.String(); got != "evennia(1000:1000)" {
		t.Errorf("String() = %q", got)
	}
}
