// Copyright 2026 The Gatehouse Authors
// SPDX-License-Identifier: Apache-2.0

package supervisor

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/gatehouse-project/gatehouse/lib/config"
)

// listingLimit caps directory listing output. Root filesystems in game
// images are small; anything beyond this is noise.
const listingLimit = 64

// redactedEnvPattern matches environment variable names whose values
// must never appear in diagnostics. Over-matching is fine (a redacted
// path is a minor annoyance, a leaked credential is an incident).
var redactedEnvPattern = regexp.MustCompile(`(?i)(secret|password|passwd|token|credential|private|key)`)

// diagnostics writes a boot environment snapshot to its writer. Every
// probe is independent: a probe that fails reports its own failure and
// the next one still runs. Nothing here can abort the boot.
type diagnostics struct {
	out io.Writer
}

// runDiagnostics emits the boot diagnostics for the configured
// verbosity. "quiet" covers kernel, identity, and managed path state;
// "full" adds the environment (redacted), network interfaces,
// listening sockets, and filesystem listings. "off" emits nothing.
//
// Configuration file contents are never dumped at any level.
func runDiagnostics(cfg *config.Config, out io.Writer) {
	if cfg.Diagnostics == config.DiagnosticsOff {
		return
	}

	d := &diagnostics{out: out}
	d.kernel()
	d.identity(cfg.User)
	d.paths(cfg)

	if cfg.Diagnostics != config.DiagnosticsFull {
		return
	}
	d.environment()
	d.interfaces()
	d.listeners()
	d.listing("/")
	d.listing("/run")
}

func (d *diagnostics) printf(format string, args ...any) {
	fmt.Fprintf(d.out, "[diag] "+format+"\n", args...)
}

// kernel reports uname(2) plus the supervisor's own process identity.
func (d *diagnostics) kernel() {
	var utsname unix.Utsname
	if err := unix.Uname(&utsname); err != nil {
		d.printf("uname failed: %v", err)
	} else {
		d.printf("kernel: %s %s %s (%s)",
			unix.ByteSliceToString(utsname.Sysname[:]),
			unix.ByteSliceToString(utsname.Release[:]),
			unix.ByteSliceToString(utsname.Machine[:]),
			unix.ByteSliceToString(utsname.Nodename[:]),
		)
	}
	d.printf("supervisor: pid=%d uid=%d gid=%d", os.Getpid(), os.Geteuid(), os.Getegid())
}

// identity reports the target identity resolution. Preflight repeats
// this check fatally; here it is informational so a failed resolution
// shows up in the same place as the rest of the environment.
func (d *diagnostics) identity(spec string) {
	identity, err := ResolveIdentity(spec)
	if err != nil {
		d.printf("target identity: unresolved: %v", err)
		return
	}
	d.printf("target identity: %s home=%s", identity, identity.Home)
}

// paths reports the state of each managed path with its mode and raw
// ownership, the facts the ownership phase is about to act on.
func (d *diagnostics) paths(cfg *config.Config) {
	for _, entry := range []struct {
		name string
		path string
	}{
		{"framework", cfg.Paths.Framework},
		{"game", cfg.Paths.Game},
		{"state", cfg.Paths.State},
		{"secret source", cfg.Secret.Source},
	} {
		info, err := os.Lstat(entry.path)
		if err != nil {
			d.printf("%s: %s: %v", entry.name, entry.path, err)
			continue
		}
		stat, err := statOwnership(entry.path)
		if err != nil {
			d.printf("%s: %s %s", entry.name, info.Mode(), entry.path)
			continue
		}
		d.printf("%s: %s uid=%d gid=%d %s", entry.name, info.Mode(), stat.Uid, stat.Gid, entry.path)
	}
}

// environment dumps the environment sorted by name, with values of
// credential-shaped variables redacted.
func (d *diagnostics) environment() {
	variables := os.Environ()
	sort.Strings(variables)
	d.printf("environment (%d variables):", len(variables))
	for _, variable := range variables {
		name, value, found := strings.Cut(variable, "=")
		if !found {
			continue
		}
		if redactedEnvPattern.MatchString(name) {
			value = "[redacted]"
		}
		d.printf("  %s=%s", name, value)
	}
}

// interfaces reports each network interface with its flags and
// addresses.
func (d *diagnostics) interfaces() {
	interfaces, err := net.Interfaces()
	if err != nil {
		d.printf("interfaces failed: %v", err)
		return
	}
	for _, networkInterface := range interfaces {
		addresses, err := networkInterface.Addrs()
		if err != nil {
			d.printf("interface %s: flags=%s addrs failed: %v",
				networkInterface.Name, networkInterface.Flags, err)
			continue
		}
		var formatted []string
		for _, address := range addresses {
			formatted = append(formatted, address.String())
		}
		d.printf("interface %s: flags=%s addrs=%s",
			networkInterface.Name, networkInterface.Flags, strings.Join(formatted, ","))
	}
}

// listeners reports listening TCP sockets from /proc/net/tcp and
// /proc/net/tcp6. In a fresh container this list should be empty; a
// populated one usually means a previous game process is still holding
// its ports.
func (d *diagnostics) listeners() {
	for _, path := range []string{"/proc/net/tcp", "/proc/net/tcp6"} {
		sockets, err := listeningSockets(path)
		if err != nil {
			d.printf("listeners %s: %v", path, err)
			continue
		}
		for _, socket := range sockets {
			d.printf("listening: %s", socket)
		}
	}
}

// listing reports up to listingLimit entries of a directory.
func (d *diagnostics) listing(path string) {
	entries, err := os.ReadDir(path)
	if err != nil {
		d.printf("listing %s: %v", path, err)
		return
	}
	d.printf("listing %s (%d entries):", path, len(entries))
	for i, entry := range entries {
		if i == listingLimit {
			d.printf("  ... %d more", len(entries)-listingLimit)
			break
		}
		info, err := entry.Info()
		if err != nil {
			d.printf("  %s", entry.Name())
			continue
		}
		d.printf("  %s %s", info.Mode(), entry.Name())
	}
}

// tcpStateListen is the kernel's TCP_LISTEN state in /proc/net/tcp
// notation.
const tcpStateListen = "0A"

// listeningSockets parses a /proc/net/tcp-format file and returns the
// local addresses of sockets in the LISTEN state.
func listeningSockets(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var sockets []string
	scanner := bufio.NewScanner(file)
	scanner.Scan() // header line
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}
		if fields[3] != tcpStateListen {
			continue
		}
		address, err := decodeKernelAddress(fields[1])
		if err != nil {
			continue
		}
		sockets = append(sockets, address)
	}
	return sockets, scanner.Err()
}

// decodeKernelAddress converts the kernel's hex "ADDR:PORT" socket
// notation to a printable address. The address bytes are stored in
// little-endian 32-bit groups, so each 4-byte group is reversed.
func decodeKernelAddress(encoded string) (string, error) {
	addressHex, portHex, found := strings.Cut(encoded, ":")
	if !found {
		return "", fmt.Errorf("malformed socket address %q", encoded)
	}

	port, err := strconv.ParseUint(portHex, 16, 16)
	if err != nil {
		return "", fmt.Errorf("malformed port %q: %w", portHex, err)
	}

	raw, err := hex.DecodeString(addressHex)
	if err != nil {
		return "", fmt.Errorf("malformed address %q: %w", addressHex, err)
	}
	if len(raw)%4 != 0 {
		return "", fmt.Errorf("address %q is not a whole number of 32-bit groups", addressHex)
	}
	for group := 0; group < len(raw); group += 4 {
		raw[group], raw[group+1], raw[group+2], raw[group+3] =
			raw[group+3], raw[group+2], raw[group+1], raw[group]
	}

	ip := net.IP(raw)
	return fmt.Sprintf("%s:%d", ip, port), nil
}
