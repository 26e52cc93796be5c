package udp

import (
	"errors"
	"net"
	"testing"
	"time"
)

// startTestTarget binds a loopback listener standing in for the downstream
// consumer and returns it with its port.
func startTestTarget(t *testing.T) (*net.UDPConn, int) {
	t.Helper()

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("Binding target socket failed: %s", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn, conn.LocalAddr().(*net.UDPAddr).Port
}

func readDatagram(t *testing.T, conn *net.UDPConn) string {
	t.Helper()

	buf := make([]byte, MaxDatagramSize)
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	n, _, err := conn.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("Reading datagram failed: %s", err)
	}
	return string(buf[:n])
}

func TestSender_SendsDatagrams(t *testing.T) {
	target, port := startTestTarget(t)

	s := NewSender("127.0.0.1", port)
	if err := s.Open(); err != nil {
		t.Fatalf("Open() failed: %s", err)
	}
	defer s.Close()

	if err := s.Send("altitude=328.084\r\n"); err != nil {
		t.Fatalf("Send() failed: %s", err)
	}
	if got := readDatagram(t, target); got != "altitude=328.084\r\n" {
		t.Errorf("Unexpected payload: %q", got)
	}

	status := s.Status()
	if !status.Active || !status.Validated {
		t.Errorf("Expected active, validated sender: %+v", status)
	}
	if status.Messages != 1 || status.Bytes != 18 {
		t.Errorf("Unexpected counters: messages=%d bytes=%d", status.Messages, status.Bytes)
	}
	if status.LastSentAgo == nil {
		t.Error("Expected LastSentAgo to be set")
	}
}

func TestSender_SendBeforeOpen(t *testing.T) {
	s := NewSender("127.0.0.1", 55300)

	if err := s.Send("time=1\r\n"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Expected ErrNotOpen, got %v", err)
	}
}

func TestSender_SendAfterClose(t *testing.T) {
	_, port := startTestTarget(t)

	s := NewSender("127.0.0.1", port)
	if err := s.Open(); err != nil {
		t.Fatalf("Open() failed: %s", err)
	}
	s.Close()

	if err := s.Send("time=1\r\n"); !errors.Is(err, ErrNotOpen) {
		t.Errorf("Expected ErrNotOpen after Close, got %v", err)
	}

	// closing again is a no-op
	s.Close()
}

func TestSender_OpenTwice(t *testing.T) {
	_, port := startTestTarget(t)

	s := NewSender("127.0.0.1", port)
	if err := s.Open(); err != nil {
		t.Fatalf("Open() failed: %s", err)
	}
	defer s.Close()

	if err := s.Open(); err == nil {
		t.Error("Expected error opening an open sender")
	}
}

func TestSender_QueuedMode(t *testing.T) {
	target, port := startTestTarget(t)

	s := NewSender("127.0.0.1", port, WithQueue(8))
	if err := s.Open(); err != nil {
		t.Fatalf("Open() failed: %s", err)
	}

	for i := 0; i < 4; i++ {
		if err := s.Send("vario=-1.5\r\n"); err != nil {
			t.Fatalf("Send() failed: %s", err)
		}
	}

	for i := 0; i < 4; i++ {
		if got := readDatagram(t, target); got != "vario=-1.5\r\n" {
			t.Fatalf("Unexpected queued payload: %q", got)
		}
	}

	// Close drains the queue before shutting the socket
	if err := s.Send("time=9\r\n"); err != nil {
		t.Fatalf("Send() failed: %s", err)
	}
	s.Close()

	if got := readDatagram(t, target); got != "time=9\r\n" {
		t.Errorf("Queued message lost on Close: %q", got)
	}
}

func TestSender_UnresolvableTarget(t *testing.T) {
	s := NewSender("host.invalid", 55300)

	if err := s.Open(); err == nil {
		s.Close()
		t.Fatal("Expected resolve error for invalid hostname")
	}
	if s.Status().Errors != 1 {
		t.Errorf("Expected 1 error, got %d", s.Status().Errors)
	}
}
