package network

import (
	"context"
	"net"
	"net/url"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/songquanpeng/contract-tester/common/logger"
)

func splitSubnets(subnets string) []string {
	var res []string
	for _, part := range strings.Split(subnets, ",") {
		if part = strings.TrimSpace(part); part != "" {
			res = append(res, part)
		}
	}
	return res
}

func isValidSubnet(subnet string) error {
	_, _, err := net.ParseCIDR(subnet)
	if err != nil {
		return errors.Wrapf(err, "failed to parse subnet: %s", subnet)
	}
	return nil
}

func isIpInSubnet(ip net.IP, subnet string) bool {
	_, ipNet, err := net.ParseCIDR(subnet)
	if err != nil {
		logger.Logger.Error("failed to parse subnet", zap.String("subnet", subnet), zap.Error(errors.Wrapf(err, "parse subnet: %s", subnet)))
		return false
	}
	return ipNet.Contains(ip)
}

func IsValidSubnets(subnets string) error {
	for _, subnet := range splitSubnets(subnets) {
		if err := isValidSubnet(subnet); err != nil {
			return errors.Wrapf(err, "invalid subnet in list: %s", subnet)
		}
	}
	return nil
}

func IsIpInSubnets(ip string, subnets string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, subnet := range splitSubnets(subnets) {
		if isIpInSubnet(parsed, subnet) {
			return true
		}
	}
	return false
}

// CheckTargetAllowed resolves the host of rawURL and rejects it when any of its
// addresses falls inside blockedSubnets. An empty blockedSubnets allows everything.
func CheckTargetAllowed(ctx context.Context, rawURL string, blockedSubnets string) error {
	if len(splitSubnets(blockedSubnets)) == 0 {
		return nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrapf(err, "parse target url %q", rawURL)
	}
	host := u.Hostname()
	if host == "" {
		return errors.Errorf("target url %q has no host", rawURL)
	}

	var ips []string
	if ip := net.ParseIP(host); ip != nil {
		ips = []string{ip.String()}
	} else {
		addrs, err := net.DefaultResolver.LookupHost(ctx, host)
		if err != nil {
			return errors.Wrapf(err, "resolve target host %q", host)
		}
		ips = addrs
	}

	for _, ip := range ips {
		if IsIpInSubnets(ip, blockedSubnets) {
			return errors.Errorf("target host %q resolves to blocked address %s", host, ip)
		}
	}
	return nil
}
