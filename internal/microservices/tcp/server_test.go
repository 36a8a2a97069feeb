package tcp

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wirehub/internal/codec"
	"wirehub/internal/handler"
	"wirehub/internal/metrics"
)

// startServer runs a server on a random loopback port and returns its
// address. The server is stopped when the test finishes.
func startServer(t *testing.T, c codec.Codec, h handler.Handler) string {
	t.Helper()

	server := NewServer("127.0.0.1:0", c, h, metrics.NewNop())
	go func() {
		server.Start()
	}()
	t.Cleanup(server.Stop)

	// wait for the listener to come up
	deadline := time.Now().Add(2 * time.Second)
	for server.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start listening")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return server.Addr().String()
}

func TestServer_EchoRoundTrip(t *testing.T) {
	addr := startServer(t, codec.NewRaw(), handler.NewEcho())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	payload := []byte("hello wirehub")
	_, err = conn.Write(payload)
	require.NoError(t, err)

	buf := make([]byte, 512)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, payload, buf[:n])
}

func TestServer_ConcurrentClientsStayIsolated(t *testing.T) {
	addr := startServer(t, codec.NewRaw(), handler.NewEcho())

	const clients = 8
	var wg sync.WaitGroup
	errs := make(chan error, clients)

	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			conn, err := net.Dial("tcp", addr)
			if err != nil {
				errs <- err
				return
			}
			defer conn.Close()

			payload := []byte(fmt.Sprintf("client-%d-payload", i))
			if _, err := conn.Write(payload); err != nil {
				errs <- err
				return
			}

			buf := make([]byte, 512)
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			n, err := conn.Read(buf)
			if err != nil {
				errs <- err
				return
			}
			if string(buf[:n]) != string(payload) {
				errs <- fmt.Errorf("client %d got %q, want %q", i, buf[:n], payload)
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestServer_VectorNormOverJSON(t *testing.T) {
	addr := startServer(t, codec.NewDelimitedJSON(), handler.NewVectorNorm())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte(`{"x":3,"y":4,"z":0}` + "\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	// the reply is plain text, not JSON
	assert.Equal(t, "5\n", line)
}

func TestServer_SequentialRequestsStayOrdered(t *testing.T) {
	addr := startServer(t, codec.NewDelimitedJSON(), handler.NewVectorNorm())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	reader := bufio.NewReader(conn)
	inputs := []string{
		`{"x":3,"y":4,"z":0}`,
		`{"x":0,"y":0,"z":0}`,
		`{"x":2,"y":3,"z":6}`,
	}
	wants := []string{"5\n", "0\n", "7\n"}

	for i, in := range inputs {
		_, err = conn.Write([]byte(in + "\n"))
		require.NoError(t, err)

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, wants[i], line)
	}
}

func TestServer_MalformedJSONClosesConnectionWithoutReply(t *testing.T) {
	addr := startServer(t, codec.NewDelimitedJSON(), handler.NewVectorNorm())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("{not json}\n"))
	require.NoError(t, err)

	// the server closes without writing anything back
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestServer_MalformedConnectionDoesNotAffectOthers(t *testing.T) {
	addr := startServer(t, codec.NewDelimitedJSON(), handler.NewVectorNorm())

	bad, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer bad.Close()
	_, err = bad.Write([]byte("garbage\n"))
	require.NoError(t, err)

	// a well-behaved client on a separate connection is unaffected
	good, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer good.Close()

	_, err = good.Write([]byte(`{"x":0,"y":1,"z":0}` + "\n"))
	require.NoError(t, err)

	good.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(good).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "1\n", line)
}

func TestServer_SplitFrameIsReassembled(t *testing.T) {
	addr := startServer(t, codec.NewDelimitedJSON(), handler.NewVectorNorm())

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	// deliver one frame in two writes; the worker must keep reading
	// until the delimiter arrives
	_, err = conn.Write([]byte(`{"x":3,"y":`))
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	_, err = conn.Write([]byte(`4,"z":0}` + "\n"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "5\n", line)
}

func TestServer_BindFailure(t *testing.T) {
	first := NewServer("127.0.0.1:0", codec.NewRaw(), handler.NewEcho(), metrics.NewNop())
	go first.Start()
	t.Cleanup(first.Stop)

	deadline := time.Now().Add(2 * time.Second)
	for first.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("first server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	second := NewServer(first.Addr().String(), codec.NewRaw(), handler.NewEcho(), metrics.NewNop())
	err := second.Start()
	assert.Error(t, err)
}

func TestServer_ManagerTracksConnections(t *testing.T) {
	server := NewServer("127.0.0.1:0", codec.NewRaw(), handler.NewEcho(), metrics.NewNop())
	go server.Start()
	defer server.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for server.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn, err := net.Dial("tcp", server.Addr().String())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return server.Manager.Count() == 1
	}, 2*time.Second, 20*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return server.Manager.Count() == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestServer_ConnectionRegisteredDuringStopIsClosed(t *testing.T) {
	server := NewServer("127.0.0.1:0", codec.NewRaw(), handler.NewEcho(), metrics.NewNop())
	go server.Start()

	deadline := time.Now().Add(2 * time.Second)
	for server.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	server.Stop()

	// A connection that registers after CloseAll ran must still be torn
	// down rather than lingering until the peer disconnects.
	srvEnd, peerEnd := net.Pipe()
	defer peerEnd.Close()

	done := make(chan struct{})
	go func() {
		server.handleConnection(srvEnd)
		close(done)
	}()

	peerEnd.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	_, err := peerEnd.Read(buf)
	require.ErrorIs(t, err, io.EOF)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("connection worker did not exit after Stop")
	}
}

func BenchmarkServer_EchoRoundTrip(b *testing.B) {
	server := NewServer("127.0.0.1:0", codec.NewRaw(), handler.NewEcho(), metrics.NewNop())
	go server.Start()
	defer server.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for server.Addr() == nil {
		if time.Now().After(deadline) {
			b.Fatal("server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn, err := net.Dial("tcp", server.Addr().String())
	if err != nil {
		b.Fatal(err)
	}
	defer conn.Close()

	payload := []byte("benchmark payload")
	buf := make([]byte, 512)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := conn.Write(payload); err != nil {
			b.Fatal(err)
		}
		if _, err := conn.Read(buf); err != nil {
			b.Fatal(err)
		}
	}
}
