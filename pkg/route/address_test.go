package route

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AutoMQ/rocketmq-client/pkg/rpc/protocol"
)

func TestNewAddress(t *testing.T) {
	tests := []struct {
		name    string
		host    string
		port    int32
		want    string
		wantErr bool
	}{
		{name: "normal", host: "10.0.0.1", port: 8081, want: "10.0.0.1:8081"},
		{name: "ipv6", host: "::1", port: 8081, want: "[::1]:8081"},
		{name: "max port", host: "h", port: 65535, want: "h:65535"},
		{name: "zero port", host: "h", port: 0, wantErr: true},
		{name: "negative port", host: "h", port: -1, wantErr: true},
		{name: "port overflow", host: "h", port: 65536, wantErr: true},
		{name: "empty host", host: "", port: 1, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			addr, err := NewAddress(tt.host, tt.port)
			if tt.wantErr {
				re.Error(err)
				return
			}
			re.NoError(err)
			re.Equal(tt.want, addr.String())
		})
	}
}

func TestNewServiceAddress(t *testing.T) {
	tests := []struct {
		name    string
		scheme  AddressScheme
		addrs   []Address
		wantErr error
	}{
		{name: "ipv4", scheme: IPv4, addrs: []Address{{"10.0.0.1", 1}, {"10.0.0.2", 1}}},
		{name: "ipv6", scheme: IPv6, addrs: []Address{{"fe80::1", 1}}},
		{name: "domain", scheme: DomainName, addrs: []Address{{"broker.example.com", 1}}},
		{name: "empty", scheme: IPv4, wantErr: ErrEmptyAddresses},
		{name: "ipv4 with ipv6 literal", scheme: IPv4, addrs: []Address{{"::1", 1}}, wantErr: ErrSchemeMismatch},
		{name: "ipv6 with ipv4 literal", scheme: IPv6, addrs: []Address{{"10.0.0.1", 1}}, wantErr: ErrSchemeMismatch},
		{name: "ipv4 with domain", scheme: IPv4, addrs: []Address{{"localhost", 1}}, wantErr: ErrSchemeMismatch},
		{name: "domain with ip literal", scheme: DomainName, addrs: []Address{{"10.0.0.1", 1}}, wantErr: ErrSchemeMismatch},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			sa, err := NewServiceAddress(tt.scheme, tt.addrs)
			if tt.wantErr != nil {
				re.ErrorIs(err, tt.wantErr)
				return
			}
			re.NoError(err)
			re.Equal(tt.scheme, sa.Scheme())
			re.Equal(tt.addrs, sa.Addresses())
		})
	}
}

func TestServiceAddress_Immutable(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	addrs := []Address{{"10.0.0.1", 1}}
	sa, err := NewServiceAddress(IPv4, addrs)
	re.NoError(err)

	addrs[0].Host = "10.0.0.9"
	got := sa.Addresses()
	got[0].Port = 2
	re.Equal([]Address{{"10.0.0.1", 1}}, sa.Addresses())
}

func TestServiceAddress_KeyAndTarget(t *testing.T) {
	t.Parallel()
	re := require.New(t)

	ipv4, err := NewServiceAddress(IPv4, []Address{{"10.0.0.1", 8081}, {"10.0.0.2", 8081}})
	re.NoError(err)
	re.Equal("ipv4:10.0.0.1:8081,10.0.0.2:8081", ipv4.Key())
	re.Equal("10.0.0.1:8081", ipv4.Target())

	domain, err := NewServiceAddress(DomainName, []Address{{"broker.example.com", 8081}})
	re.NoError(err)
	re.Equal("dns:///broker.example.com:8081", domain.Target())

	other, err := NewServiceAddress(IPv4, []Address{{"10.0.0.1", 8081}, {"10.0.0.2", 8081}})
	re.NoError(err)
	re.True(ipv4.Equal(other))
	re.False(ipv4.Equal(domain))
	re.True(ServiceAddress{}.IsZero())
	re.Equal("", ServiceAddress{}.Target())
}

func TestParseServiceAddress(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		wantScheme AddressScheme
		wantLen    int
		wantErr    bool
	}{
		{name: "single ipv4", in: "127.0.0.1:8081", wantScheme: IPv4, wantLen: 1},
		{name: "multiple ipv4", in: "127.0.0.1:8081, 127.0.0.2:8081", wantScheme: IPv4, wantLen: 2},
		{name: "ipv6", in: "[::1]:8081", wantScheme: IPv6, wantLen: 1},
		{name: "domain", in: "localhost:8081", wantScheme: DomainName, wantLen: 1},
		{name: "mixed", in: "127.0.0.1:8081,localhost:8081", wantErr: true},
		{name: "no port", in: "127.0.0.1", wantErr: true},
		{name: "bad port", in: "127.0.0.1:x", wantErr: true},
		{name: "empty", in: " , ", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			sa, err := ParseServiceAddress(tt.in)
			if tt.wantErr {
				re.Error(err)
				return
			}
			re.NoError(err)
			re.Equal(tt.wantScheme, sa.Scheme())
			re.Len(sa.Addresses(), tt.wantLen)
		})
	}
}

func TestSchemeFromWire(t *testing.T) {
	tests := []struct {
		name string
		in   protocol.AddressScheme
		want AddressScheme
	}{
		{name: "ipv4", in: protocol.AddressSchemeIPv4, want: IPv4},
		{name: "ipv6", in: protocol.AddressSchemeIPv6, want: IPv6},
		{name: "domain", in: protocol.AddressSchemeDomainName, want: DomainName},
		{name: "unknown falls back to ipv4", in: protocol.AddressScheme(42), want: IPv4},
		{name: "negative falls back to ipv4", in: protocol.AddressScheme(-1), want: IPv4},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			got := SchemeFromWire(tt.in)
			re.Equal(tt.want, got)
			if tt.in >= 0 && tt.in <= protocol.AddressSchemeDomainName {
				re.Equal(tt.in, got.Wire())
			}
		})
	}
}

func TestPermissionFromWire(t *testing.T) {
	tests := []struct {
		name         string
		in           protocol.Permission
		want         Permission
		wantWritable bool
		wantReadable bool
	}{
		{name: "none", in: protocol.PermissionNone, want: None},
		{name: "read", in: protocol.PermissionRead, want: Read, wantReadable: true},
		{name: "write", in: protocol.PermissionWrite, want: Write, wantWritable: true},
		{name: "read write", in: protocol.PermissionReadWrite, want: ReadWrite, wantWritable: true, wantReadable: true},
		{name: "unknown falls back to none", in: protocol.Permission(9), want: None},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			got := PermissionFromWire(tt.in)
			re.Equal(tt.want, got)
			re.Equal(tt.wantWritable, got.Writable())
			re.Equal(tt.wantReadable, got.Readable())
			if tt.in <= protocol.PermissionReadWrite {
				re.Equal(tt.in.String(), got.String())
			}
		})
	}
}
