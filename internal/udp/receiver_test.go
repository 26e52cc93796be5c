package udp

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

// startTestReceiver starts a receiver on an ephemeral loopback port and
// returns it together with its bound address and a channel of received
// payloads.
func startTestReceiver(t *testing.T, handler Handler) (*Receiver, *net.UDPAddr) {
	t.Helper()

	r := NewReceiver("127.0.0.1", 0, handler)
	if err := r.Start(); err != nil {
		t.Fatalf("Start() failed: %s", err)
	}
	t.Cleanup(r.Stop)

	addr, ok := r.Addr().(*net.UDPAddr)
	if !ok {
		t.Fatal("Receiver is not bound to a UDP address")
	}
	return r, addr
}

func sendDatagram(t *testing.T, addr *net.UDPAddr, payload []byte) {
	t.Helper()

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		t.Fatalf("Dialing receiver failed: %s", err)
	}
	defer conn.Close()

	if _, err = conn.Write(payload); err != nil {
		t.Fatalf("Sending datagram failed: %s", err)
	}
}

func waitFor(t *testing.T, received <-chan string) string {
	t.Helper()

	select {
	case text := <-received:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for datagram")
		return ""
	}
}

func TestReceiver_ReceivesDatagrams(t *testing.T) {
	received := make(chan string, 4)
	r, addr := startTestReceiver(t, func(text string) { received <- text })

	sendDatagram(t, addr, []byte("altitude=100.0\r\n"))
	if got := waitFor(t, received); got != "altitude=100.0\r\n" {
		t.Errorf("Unexpected payload: %q", got)
	}

	sendDatagram(t, addr, []byte("vario=-1.5\r\n"))
	waitFor(t, received)

	status := r.Status()
	if status.Messages != 2 {
		t.Errorf("Expected 2 messages, got %d", status.Messages)
	}
	if status.Bytes != 28 {
		t.Errorf("Expected 28 bytes, got %d", status.Bytes)
	}
	if !status.Running || !status.Bound {
		t.Errorf("Expected running, bound receiver: %+v", status)
	}
	if status.LastReceivedAgo == nil {
		t.Error("Expected LastReceivedAgo to be set")
	}
}

func TestReceiver_DropsNonUTF8(t *testing.T) {
	received := make(chan string, 1)
	r, addr := startTestReceiver(t, func(text string) { received <- text })

	sendDatagram(t, addr, []byte{0xff, 0xfe, 0xfd})
	sendDatagram(t, addr, []byte("time=1.0\r\n"))

	if got := waitFor(t, received); got != "time=1.0\r\n" {
		t.Errorf("Unexpected payload after invalid datagram: %q", got)
	}

	status := r.Status()
	if status.Messages != 1 {
		t.Errorf("Invalid datagram counted as message, messages=%d", status.Messages)
	}
	if status.Errors != 1 {
		t.Errorf("Expected 1 error, got %d", status.Errors)
	}
}

func TestReceiver_SurvivesHandlerPanic(t *testing.T) {
	received := make(chan string, 2)
	r, addr := startTestReceiver(t, func(text string) {
		if strings.HasPrefix(text, "boom") {
			panic("handler failure")
		}
		received <- text
	})

	sendDatagram(t, addr, []byte("boom=1\r\n"))
	sendDatagram(t, addr, []byte("time=2.0\r\n"))

	if got := waitFor(t, received); got != "time=2.0\r\n" {
		t.Errorf("Unexpected payload after handler panic: %q", got)
	}
	if errs := r.Status().Errors; errs != 1 {
		t.Errorf("Expected 1 error from handler panic, got %d", errs)
	}
}

func TestReceiver_StartTwice(t *testing.T) {
	r, _ := startTestReceiver(t, func(string) {})

	if err := r.Start(); err == nil {
		t.Error("Expected error starting a running receiver")
	}
}

func TestReceiver_Stop(t *testing.T) {
	r := NewReceiver("127.0.0.1", 0, func(string) {})
	if err := r.Start(); err != nil {
		t.Fatalf("Start() failed: %s", err)
	}

	done := make(chan struct{})
	go func() {
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopTimeout + time.Second):
		t.Fatal("Stop() did not return within the stop timeout")
	}

	if r.Status().Running {
		t.Error("Receiver still reports running after Stop")
	}

	// stopping again is a no-op
	r.Stop()
}

func TestReceiver_BindFailure(t *testing.T) {
	held, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("Binding helper socket failed: %s", err)
	}
	defer held.Close()

	port := held.LocalAddr().(*net.UDPAddr).Port
	r := NewReceiver("127.0.0.1", port, func(string) {})
	if err = r.Start(); err == nil {
		r.Stop()
		t.Fatal("Expected bind error on an occupied port")
	}
	if !strings.Contains(err.Error(), fmt.Sprintf("binding 127.0.0.1:%d", port)) {
		t.Errorf("Bind error does not name the endpoint: %s", err)
	}
}
