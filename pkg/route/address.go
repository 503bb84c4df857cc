package route

import (
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/AutoMQ/rocketmq-client/pkg/rpc/protocol"
)

var (
	// ErrEmptyAddresses is returned when a ServiceAddress is built without any Address.
	ErrEmptyAddresses = errors.New("service address has no address")
	// ErrSchemeMismatch is returned when an address literal does not match the addressing scheme.
	ErrSchemeMismatch = errors.New("address does not match scheme")
)

// AddressScheme is the way the addresses of a ServiceAddress are written.
type AddressScheme uint8

const (
	IPv4 AddressScheme = iota
	IPv6
	DomainName
)

// SchemeFromWire maps a wire scheme to an AddressScheme.
// Unrecognized values are treated as IPv4.
func SchemeFromWire(s protocol.AddressScheme) AddressScheme {
	switch s {
	case protocol.AddressSchemeIPv4:
		return IPv4
	case protocol.AddressSchemeIPv6:
		return IPv6
	case protocol.AddressSchemeDomainName:
		return DomainName
	default:
		return IPv4
	}
}

// Wire returns the wire value of the scheme.
func (s AddressScheme) Wire() protocol.AddressScheme {
	switch s {
	case IPv6:
		return protocol.AddressSchemeIPv6
	case DomainName:
		return protocol.AddressSchemeDomainName
	default:
		return protocol.AddressSchemeIPv4
	}
}

func (s AddressScheme) String() string {
	switch s {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	case DomainName:
		return "DomainName"
	default:
		return "AddressScheme(" + strconv.Itoa(int(s)) + ")"
	}
}

// matches reports whether host is written in the form the scheme requires.
func (s AddressScheme) matches(host string) bool {
	ip := net.ParseIP(host)
	switch s {
	case IPv4:
		return ip != nil && ip.To4() != nil
	case IPv6:
		return ip != nil && ip.To4() == nil
	case DomainName:
		return ip == nil
	default:
		return false
	}
}

// Address is one network endpoint.
type Address struct {
	Host string
	Port uint16
}

// NewAddress validates host and port and returns an Address.
// port is taken as a wire integer and must be in (0, 65535].
func NewAddress(host string, port int32) (Address, error) {
	if host == "" {
		return Address{}, errors.New("empty host")
	}
	if port <= 0 || port > 0xffff {
		return Address{}, errors.Errorf("invalid port %d for host %s", port, host)
	}
	return Address{Host: host, Port: uint16(port)}, nil
}

// String returns "host:port", with IPv6 hosts in brackets.
func (a Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(int(a.Port)))
}

// ServiceAddress is a non-empty, ordered set of equivalent endpoints of one broker.
// It is immutable once built.
type ServiceAddress struct {
	scheme    AddressScheme
	addresses []Address
}

// NewServiceAddress builds a ServiceAddress after checking that addresses is
// non-empty and every host is written in the form scheme requires.
func NewServiceAddress(scheme AddressScheme, addresses []Address) (ServiceAddress, error) {
	if len(addresses) == 0 {
		return ServiceAddress{}, ErrEmptyAddresses
	}
	for _, addr := range addresses {
		if addr.Port == 0 {
			return ServiceAddress{}, errors.Errorf("invalid port 0 for host %s", addr.Host)
		}
		if !scheme.matches(addr.Host) {
			return ServiceAddress{}, errors.Wrapf(ErrSchemeMismatch, "%s is not a %s address", addr.Host, scheme)
		}
	}
	return ServiceAddress{
		scheme:    scheme,
		addresses: append([]Address(nil), addresses...),
	}, nil
}

// Scheme returns the addressing scheme.
func (s ServiceAddress) Scheme() AddressScheme {
	return s.scheme
}

// Addresses returns a copy of the addresses, in order.
func (s ServiceAddress) Addresses() []Address {
	return append([]Address(nil), s.addresses...)
}

// IsZero reports whether s was never built with NewServiceAddress.
func (s ServiceAddress) IsZero() bool {
	return len(s.addresses) == 0
}

// Equal reports whether both have the same scheme and addresses in the same order.
func (s ServiceAddress) Equal(o ServiceAddress) bool {
	if s.scheme != o.scheme || len(s.addresses) != len(o.addresses) {
		return false
	}
	for i := range s.addresses {
		if s.addresses[i] != o.addresses[i] {
			return false
		}
	}
	return true
}

// Key is a stable identity of the service address, usable as a map key.
func (s ServiceAddress) Key() string {
	return strings.ToLower(s.scheme.String()) + ":" + s.String()
}

// String returns the addresses joined by ",".
func (s ServiceAddress) String() string {
	items := make([]string, len(s.addresses))
	for i, addr := range s.addresses {
		items[i] = addr.String()
	}
	return strings.Join(items, ",")
}

// Wire returns the wire form of the service address.
func (s ServiceAddress) Wire() *protocol.Endpoints {
	endpoints := &protocol.Endpoints{
		Scheme:    s.scheme.Wire(),
		Addresses: make([]*protocol.Address, len(s.addresses)),
	}
	for i, addr := range s.addresses {
		endpoints.Addresses[i] = &protocol.Address{Host: addr.Host, Port: int32(addr.Port)}
	}
	return endpoints
}

// ParseServiceAddress parses "host:port[,host:port...]". The scheme is
// inferred from the first host: an IP literal gives IPv4 or IPv6, anything else
// DomainName.
func ParseServiceAddress(s string) (ServiceAddress, error) {
	items := strings.Split(s, ",")
	addresses := make([]Address, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		host, portStr, err := net.SplitHostPort(item)
		if err != nil {
			return ServiceAddress{}, errors.Wrapf(err, "parse address %q", item)
		}
		port, err := strconv.ParseInt(portStr, 10, 32)
		if err != nil {
			return ServiceAddress{}, errors.Wrapf(err, "parse port of %q", item)
		}
		addr, err := NewAddress(host, int32(port))
		if err != nil {
			return ServiceAddress{}, err
		}
		addresses = append(addresses, addr)
	}
	if len(addresses) == 0 {
		return ServiceAddress{}, ErrEmptyAddresses
	}

	scheme := DomainName
	if ip := net.ParseIP(addresses[0].Host); ip != nil {
		scheme = IPv6
		if ip.To4() != nil {
			scheme = IPv4
		}
	}
	return NewServiceAddress(scheme, addresses)
}

// Target returns the gRPC dial target of the first address. Domain names are
// resolved through the dns resolver.
func (s ServiceAddress) Target() string {
	if len(s.addresses) == 0 {
		return ""
	}
	if s.scheme == DomainName {
		return "dns:///" + s.addresses[0].String()
	}
	return s.addresses[0].String()
}
