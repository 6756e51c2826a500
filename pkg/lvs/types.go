package lvs

import (
	"fmt"
	"net"
	"syscall"
)

// ServiceKey uniquely identifies an IPVS virtual service.
type ServiceKey struct {
	Address  string
	Port     uint16
	Protocol uint16
}

// String returns a human-readable representation of the ServiceKey.
func (k ServiceKey) String() string {
	return fmt.Sprintf("%s:%d/%s", k.Address, k.Port, protocolToString(k.Protocol))
}

// protocolToString converts a protocol number to its string name.
func protocolToString(protocol uint16) string {
	switch protocol {
	case syscall.IPPROTO_TCP:
		return "tcp"
	case syscall.IPPROTO_UDP:
		return "udp"
	default:
		return fmt.Sprintf("unknown(%d)", protocol)
	}
}

// DestinationKey uniquely identifies an IPVS destination within a service.
type DestinationKey struct {
	Address string
	Port    uint16
}

// String returns a human-readable representation of the DestinationKey.
func (k DestinationKey) String() string {
	return fmt.Sprintf("%s:%d", k.Address, k.Port)
}

// addressFamilyFromIP determines the address family (IPv4 or IPv6) from an IP address.
func addressFamilyFromIP(ipAddress net.IP) uint16 {
	if ipAddress.To4() != nil {
		return syscall.AF_INET
	}
	return syscall.AF_INET6
}

// netmaskFromFamily returns the appropriate netmask for the given address family.
func netmaskFromFamily(family uint16) uint32 {
	if family == syscall.AF_INET {
		return 0xFFFFFFFF
	}
	return 128
}

// ServiceKeyFromIPVS generates a ServiceKey from a Service.
func ServiceKeyFromIPVS(svc *Service) ServiceKey {
	return ServiceKey{
		Address:  svc.Address.String(),
		Port:     svc.Port,
		Protocol: svc.Protocol,
	}
}

// DestinationKeyFromIPVS generates a DestinationKey from a Destination.
func DestinationKeyFromIPVS(dst *Destination) DestinationKey {
	return DestinationKey{
		Address: dst.Address.String(),
		Port:    dst.Port,
	}
}
