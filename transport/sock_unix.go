//go:build unix

// File: transport/sock_unix.go
// Author: momentics <momentics@gmail.com>
//
// Socket plumbing shared by Conn, Acceptor and Connect: address
// resolution to raw sockaddrs, non-blocking stream socket creation and
// sockaddr-to-net.Addr conversion.

package transport

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"github.com/momentics/ioloop/api"
)

// resolveSockaddr maps a network/address pair onto a socket family and
// a raw sockaddr. Supported networks: tcp, tcp4, tcp6, unix.
func resolveSockaddr(network, addr string) (family int, sa unix.Sockaddr, err error) {
	switch network {
	case "tcp", "tcp4", "tcp6":
		tcpAddr, err := net.ResolveTCPAddr(network, addr)
		if err != nil {
			return 0, nil, fmt.Errorf("resolve %s %q: %w", network, addr, err)
		}
		ip := tcpAddr.IP
		if v4 := ip.To4(); v4 != nil && network != "tcp6" {
			sa4 := &unix.SockaddrInet4{Port: tcpAddr.Port}
			copy(sa4.Addr[:], v4)
			return unix.AF_INET, sa4, nil
		}
		sa6 := &unix.SockaddrInet6{Port: tcpAddr.Port}
		if ip16 := ip.To16(); ip16 != nil {
			copy(sa6.Addr[:], ip16)
		}
		return unix.AF_INET6, sa6, nil
	case "unix":
		return unix.AF_UNIX, &unix.SockaddrUnix{Name: addr}, nil
	default:
		return 0, nil, api.NewError(api.ErrCodeInvalidArgument, "unsupported network").
			WithContext("network", network)
	}
}

// newStreamSocket creates a non-blocking, close-on-exec stream socket
// for the family.
func newStreamSocket(family int) (int, error) {
	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}
	if err := prepareFd(fd, family != unix.AF_UNIX); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// prepareFd switches an fd to non-blocking close-on-exec mode and, for
// TCP sockets, disables Nagle.
func prepareFd(fd int, tcp bool) error {
	if err := unix.SetNonblock(fd, true); err != nil {
		return fmt.Errorf("set nonblock: %w", err)
	}
	unix.CloseOnExec(fd)
	if tcp {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return fmt.Errorf("set TCP_NODELAY: %w", err)
		}
	}
	return nil
}

// sockaddrToAddr converts a raw sockaddr into a net.Addr for
// LocalAddr/RemoteAddr reporting.
func sockaddrToAddr(sa unix.Sockaddr) net.Addr {
	switch sa := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(sa.Addr[:]), Port: sa.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(sa.Addr[:]), Port: sa.Port}
	case *unix.SockaddrUnix:
		return &net.UnixAddr{Net: "unix", Name: sa.Name}
	default:
		return nil
	}
}

// localAddr reports the bound address of fd, nil when unavailable.
func localAddr(fd int) net.Addr {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil
	}
	return sockaddrToAddr(sa)
}

// peerAddr reports the peer address of fd, nil for unconnected fds.
func peerAddr(fd int) net.Addr {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return nil
	}
	return sockaddrToAddr(sa)
}

// isTCPFd reports whether fd is an AF_INET/AF_INET6 socket.
func isTCPFd(fd int) bool {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return false
	}
	switch sa.(type) {
	case *unix.SockaddrInet4, *unix.SockaddrInet6:
		return true
	}
	return false
}
