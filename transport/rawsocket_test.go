package transport

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/gieseladev/aiowamp/serialize"
	"github.com/gieseladev/aiowamp/wamp"
)

func TestRecvExponentForSize(t *testing.T) {
	cases := []struct {
		requested int
		want      int
	}{
		{0, 0},
		{-1, 0},
		{512, 0},
		{513, 1},
		{1024, 1},
		{1 << 20, 11},
		{1 << 30, 0xf},
	}
	for _, c := range cases {
		if got := recvExponentForSize(c.requested); got != c.want {
			t.Errorf("recvExponentForSize(%d) = %d, want %d", c.requested, got, c.want)
		}
	}
}

// fakeRouter performs the server side of a raw-socket handshake on conn,
// reads one message frame, and replies once with echo.
func fakeRouter(t *testing.T, conn net.Conn, echo wamp.Message) {
	t.Helper()
	req := make([]byte, 4)
	if _, err := io.ReadFull(conn, req); err != nil {
		t.Errorf("fakeRouter: read handshake: %v", err)
		return
	}
	if req[0] != rawSocketMagic {
		t.Errorf("fakeRouter: bad magic octet: %x", req[0])
		return
	}
	reply := []byte{rawSocketMagic, req[1], 0, 0}
	if _, err := conn.Write(reply); err != nil {
		t.Errorf("fakeRouter: write handshake reply: %v", err)
		return
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(conn, header); err != nil {
		t.Errorf("fakeRouter: read frame header: %v", err)
		return
	}
	length := int(header[1])<<16 | int(header[2])<<8 | int(header[3])
	body := make([]byte, length)
	if _, err := io.ReadFull(conn, body); err != nil {
		t.Errorf("fakeRouter: read frame body: %v", err)
		return
	}

	ser := serialize.New(serialize.FormatJSON)
	out, err := ser.Serialize(echo)
	if err != nil {
		t.Errorf("fakeRouter: serialize echo: %v", err)
		return
	}
	if err := conn.SetDeadline(time.Time{}); err != nil {
		t.Errorf("fakeRouter: clear deadline: %v", err)
	}
	if _, err := conn.Write(frameHeader(opMessage, len(out))); err != nil {
		t.Errorf("fakeRouter: write echo header: %v", err)
		return
	}
	if _, err := conn.Write(out); err != nil {
		t.Errorf("fakeRouter: write echo body: %v", err)
	}
}

func TestRawSocketHandshakeAndRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	want := wamp.Goodbye{Details: wamp.Dict{}, Reason: wamp.CloseSystemShutdown}

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		fakeRouter(t, conn, want)
	}()

	tr, err := DialRawSocket(ln.Addr().String(), RawSocketOptions{
		Format:      serialize.FormatJSON,
		DialTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("DialRawSocket: %v", err)
	}
	defer tr.Close()

	if err := tr.Send(wamp.Hello{Realm: "realm1", Details: wamp.Dict{}}); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := tr.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	gb, ok := got.(wamp.Goodbye)
	if !ok {
		t.Fatalf("expected wamp.Goodbye, got %T", got)
	}
	if gb.Reason != want.Reason {
		t.Errorf("reason mismatch: got %q want %q", gb.Reason, want.Reason)
	}
}

func TestRawSocketRejectsBadMagic(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4)
		io.ReadFull(conn, buf)
		conn.Write([]byte{0x00, buf[1], 0, 0})
	}()

	_, err = DialRawSocket(ln.Addr().String(), RawSocketOptions{
		Format:      serialize.FormatJSON,
		DialTimeout: 2 * time.Second,
	})
	if err == nil {
		t.Fatal("expected error for bad magic octet")
	}
}

func TestRawSocketRejectsHandshakeErrorCode(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4)
		io.ReadFull(conn, buf)
		// error code 2 (max message length unacceptable) in the high nibble,
		// low nibble zero signals a handshake rejection.
		conn.Write([]byte{rawSocketMagic, 2 << 4, 0, 0})
	}()

	_, err = DialRawSocket(ln.Addr().String(), RawSocketOptions{
		Format:      serialize.FormatJSON,
		DialTimeout: 2 * time.Second,
	})
	if err == nil {
		t.Fatal("expected error for handshake rejection")
	}
}
