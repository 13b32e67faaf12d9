// Package beacon implements the TiVo discovery beacon protocol described in
// spec.md §4.1: a periodic UDP broadcast of presence, and a TCP "direct
// connect" listener for beacon exchanges initiated by a TiVo or by us.
package beacon

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"time"

	"github.com/pytivogo/bridge/internal/log"
	"github.com/pytivogo/bridge/internal/metrics"
)

const (
	platformVideo = "pc/pyTivo"
	platformMain  = "pyTivo"
	// Port is the well-known TiVo beacon port, both UDP and TCP.
	Port = 2190
)

// Method distinguishes a broadcast beacon from a direct-connect reply.
type Method string

const (
	MethodBroadcast Method = "broadcast"
	MethodConnected Method = "connected"
)

// Beacon owns the identity and service list advertised to TiVos.
type Beacon struct {
	GUID     string
	Hostname string
	Platform string
	Services []string

	// Interval between broadcasts; defaults to 60s if zero.
	Interval time.Duration

	conn *net.UDPConn
}

// New builds a Beacon. platform should be platformMain if any configured
// share is music or photos, else platformVideo, mirroring the original
// pyTivo rule (spec §4.1).
func New(guid, hostname string, hasMusicOrPhotos bool, services []string) *Beacon {
	platform := platformVideo
	if hasMusicOrPhotos {
		platform = platformMain
	}
	return &Beacon{
		GUID:     guid,
		Hostname: hostname,
		Platform: platform,
		Services: services,
		Interval: 60 * time.Second,
	}
}

// FormatBody renders the plain-text beacon body per spec.md §4.1.
func (b *Beacon) FormatBody(method Method, withServices bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "tivoconnect=1\n")
	fmt.Fprintf(&sb, "method=%s\n", method)
	fmt.Fprintf(&sb, "identity={%s}\n", b.GUID)
	fmt.Fprintf(&sb, "machine=%s\n", b.Hostname)
	fmt.Fprintf(&sb, "platform=%s\n", b.Platform)
	if withServices {
		fmt.Fprintf(&sb, "services=%s\n", strings.Join(b.Services, ";"))
	} else {
		fmt.Fprintf(&sb, "services=TiVoMediaServer:0/http\n")
	}
	return sb.String()
}

// Broadcast sends one UDP broadcast beacon to every address in addrs on
// Port. A partial write continues from the unsent offset, matching the
// original's retry-on-short-write loop.
func (b *Beacon) Broadcast(addrs []string) error {
	if b.conn == nil {
		conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
		if err != nil {
			return fmt.Errorf("beacon: opening udp socket: %w", err)
		}
		b.conn = conn
	}
	body := []byte(b.FormatBody(MethodBroadcast, true))
	logger := log.WithComponent("beacon")

	var firstErr error
	for _, addr := range addrs {
		dst := &net.UDPAddr{IP: net.ParseIP(addr), Port: Port}
		if dst.IP == nil {
			logger.Warn().Str("event", "beacon.bad_address").Str("addr", addr).Msg("skipping invalid broadcast address")
			continue
		}
		packet := body
		for len(packet) > 0 {
			n, err := b.conn.WriteToUDP(packet, dst)
			if err != nil {
				logger.Warn().Err(err).Str("event", "beacon.send_failed").Str("addr", addr).Msg("broadcast send failed")
				if firstErr == nil {
					firstErr = err
				}
				break
			}
			packet = packet[n:]
		}
		metrics.BeaconBroadcastsTotal.Inc()
	}
	return firstErr
}

// Run periodically broadcasts until ctx is cancelled. One goroutine for
// the lifetime of the daemon, matching the teacher's supervised-goroutine
// style and spec §5's "60-second periodic broadcast task".
func (b *Beacon) Run(ctx context.Context, addrs []string) {
	logger := log.WithComponent("beacon")
	interval := b.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := b.Broadcast(addrs); err != nil {
		logger.Warn().Err(err).Msg("initial beacon broadcast failed")
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.Broadcast(addrs); err != nil {
				logger.Warn().Err(err).Msg("beacon broadcast failed")
			}
		}
	}
}

// Close releases the UDP socket.
func (b *Beacon) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}

func recvPacket(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf[:])
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func sendPacket(w io.Writer, body []byte) error {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// ListenDirectConnect runs the TCP direct-connect listener described in
// spec §4.1 until ctx is cancelled: accept, discard the peer's beacon,
// reply with a "connected" beacon, close.
func (b *Beacon) ListenDirectConnect(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", Port))
	if err != nil {
		return fmt.Errorf("beacon: listening on tcp/%d: %w", Port, err)
	}
	logger := log.WithComponent("beacon")

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				logger.Warn().Err(err).Msg("direct-connect accept failed")
				continue
			}
		}
		go b.handleDirectConnect(conn)
	}
}

func (b *Beacon) handleDirectConnect(conn net.Conn) {
	defer conn.Close()
	logger := log.WithComponent("beacon")

	if _, err := recvPacket(conn); err != nil {
		logger.Debug().Err(err).Msg("direct-connect: failed reading peer beacon")
		return
	}
	reply := []byte(b.FormatBody(MethodConnected, false))
	if err := sendPacket(conn, reply); err != nil {
		logger.Debug().Err(err).Msg("direct-connect: failed sending reply")
		return
	}
	metrics.BeaconDirectConnectsTotal.Inc()
}

var machineNameRe = regexp.MustCompile(`machine=(.*)`)

// GetName exchanges beacons with addr and returns the peer's machine name,
// or addr itself if the exchange fails (spec §4.1 get_name).
func GetName(addr string) string {
	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.Dial("tcp", fmt.Sprintf("%s:%d", addr, Port))
	if err != nil {
		return addr
	}
	defer conn.Close()

	ours := New("00000000-0000-0000-0000-000000000000", "pytivogo", false, nil)
	if err := sendPacket(conn, []byte(ours.FormatBody(MethodConnected, false))); err != nil {
		return addr
	}
	body, err := recvPacket(conn)
	if err != nil {
		return addr
	}
	scanner := bufio.NewScanner(strings.NewReader(string(body)))
	for scanner.Scan() {
		if m := machineNameRe.FindStringSubmatch(scanner.Text()); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return addr
}
