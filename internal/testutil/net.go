package testutil

import (
	"net"
	"strconv"
)

// FreePort asks the kernel for an unused TCP port.
func FreePort(t TestingT) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("failed to find free port: %v", err)
		return ""
	}
	defer l.Close()
	return strconv.Itoa(l.Addr().(*net.TCPAddr).Port)
}
