/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"net"
	"strconv"
)

// lanAddresses returns every non-loopback IPv4 address on this host, falling
// back to localhost when none is found. Used to print join links that other
// devices on the same network can open.
func lanAddresses() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return []string{"localhost"}
	}

	var out []string
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP.To4()
		if ip == nil || ip.IsLoopback() {
			continue
		}
		out = append(out, ip.String())
	}

	if len(out) == 0 {
		return []string{"localhost"}
	}
	return out
}

// logJoinLinks prints one shareable link per LAN address for a new room.
func logJoinLinks(cfg *Config, path, roomID string) {
	for _, ip := range lanAddresses() {
		logf(cfg, "ROOMS: Join link: %s://%s%s%s/%s",
			cfg.scheme(),
			net.JoinHostPort(ip, strconv.Itoa(cfg.port)),
			cfg.prefix,
			path,
			roomID,
		)
	}
}
