package beacon

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFormatBodyLiteral exercises end-to-end scenario 1 from spec.md §8.
func TestFormatBodyLiteral(t *testing.T) {
	b := New("1234", "host", false, []string{"TiVoMediaServer:9032/http"})
	got := b.FormatBody(MethodBroadcast, true)
	want := "tivoconnect=1\n" +
		"method=broadcast\n" +
		"identity={1234}\n" +
		"machine=host\n" +
		"platform=pc/pyTivo\n" +
		"services=TiVoMediaServer:9032/http\n"
	assert.Equal(t, want, got)
}

func TestPlatformSelection(t *testing.T) {
	assert.Equal(t, platformVideo, New("g", "h", false, nil).Platform)
	assert.Equal(t, platformMain, New("g", "h", true, nil).Platform)
}

func TestFormatBodyConnectedNoServices(t *testing.T) {
	b := New("g", "h", false, []string{"x"})
	got := b.FormatBody(MethodConnected, false)
	assert.Contains(t, got, "method=connected\n")
	assert.Contains(t, got, "services=TiVoMediaServer:0/http\n")
}

func TestDirectConnectExchange(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	b := New("abcd", "testhost", false, []string{"TiVoMediaServer:9032/http"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go b.handleDirectConnect(conn)
		}
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, sendPacket(conn, []byte("tivoconnect=1\nmethod=connected\n")))
	reply, err := recvPacket(conn)
	require.NoError(t, err)
	assert.Contains(t, string(reply), "method=connected")
	assert.Contains(t, string(reply), "machine=testhost")
}

func TestRecvSendPacketRoundTrip(t *testing.T) {
	r, w := io.Pipe()
	go func() {
		_ = sendPacket(w, []byte("hello beacon"))
		w.Close()
	}()
	got, err := recvPacket(r)
	require.NoError(t, err)
	assert.Equal(t, "hello beacon", string(got))
}

func TestPacketLengthPrefixIsBigEndian(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, sendPacket(&buf, []byte("abc")))
	data := buf.String()
	require.Len(t, data, 7)
	got := binary.BigEndian.Uint32([]byte(data[:4]))
	assert.Equal(t, uint32(3), got)
}

func TestGetNameFallsBackToAddressOnFailure(t *testing.T) {
	name := GetName("198.51.100.1:0")
	assert.Equal(t, "198.51.100.1:0", name)
}

func TestBeaconBroadcastPeriodApprox60s(t *testing.T) {
	b := New("g", "h", false, nil)
	assert.Equal(t, 60*time.Second, b.Interval)
}

func TestMachineNameRegex(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader("tivoconnect=1\nmachine=LivingRoom\nplatform=x\n"))
	var got string
	for scanner.Scan() {
		if m := machineNameRe.FindStringSubmatch(scanner.Text()); m != nil {
			got = m[1]
		}
	}
	assert.Equal(t, "LivingRoom", got)
}
