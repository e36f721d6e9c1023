package peer

import (
	"net"
	"strings"
)

var cgnat = &net.IPNet{IP: net.IPv4(100, 64, 0, 0), Mask: net.CIDRMask(10, 32)}

// vpnHints are interface name fragments of tunnels that usually break direct
// connectivity: OpenVPN tun/tap, WireGuard, PPP and Cloudflare WARP.
var vpnHints = []string{"tun", "tap", "wg", "ppp", "warp"}

// restrictedNetwork reports whether this host looks like it sits behind a VPN
// or carrier-grade NAT, where only TURN relays tend to work.
func restrictedNetwork() bool {
	ifaces, err := net.Interfaces()
	if err != nil {
		return false
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		var ips []net.IP
		if addrs, err := iface.Addrs(); err == nil {
			for _, addr := range addrs {
				switch v := addr.(type) {
				case *net.IPNet:
					ips = append(ips, v.IP)
				case *net.IPAddr:
					ips = append(ips, v.IP)
				}
			}
		}
		if restrictedInterface(iface.Name, ips) {
			return true
		}
	}
	return false
}

func restrictedInterface(name string, ips []net.IP) bool {
	name = strings.ToLower(name)
	for _, hint := range vpnHints {
		if strings.Contains(name, hint) {
			return true
		}
	}
	for _, ip := range ips {
		if cgnat.Contains(ip) {
			return true
		}
	}
	return false
}
