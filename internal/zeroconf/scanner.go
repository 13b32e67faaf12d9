package zeroconf

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/pytivogo/bridge/internal/log"
	"github.com/pytivogo/bridge/internal/metrics"
	"github.com/pytivogo/bridge/internal/registry"
)

// Discovered is one TiVo found while scanning for _tivo-videos._tcp.
type Discovered struct {
	Name       string
	Address    string
	Port       int
	Properties map[string]string
}

// Scan browses _tivo-videos._tcp.local for up to window (spec §4.2: "up to
// 30s"), inserting every result into reg. It returns the set of instance
// names observed, for collision-rename checks on the next advertise pass.
func Scan(ctx context.Context, window time.Duration, reg *registry.TiVoRegistry) (map[string]bool, error) {
	logger := log.WithComponent("zeroconf")
	svcType := serviceTypeFQDN("tivo-videos")
	// decodeName returns names without the trailing root dot.
	svcName := strings.TrimSuffix(svcType, ".")

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := &message{ID: 1, Questions: []question{{Name: svcType, Type: rrTypePTR, Class: classIN}}}
	dst := &net.UDPAddr{IP: net.ParseIP(MulticastAddr), Port: MulticastPort}
	if _, err := conn.WriteToUDP(query.encodeQuery(), dst); err != nil {
		return nil, err
	}

	observed := map[string]bool{}
	srvByInstance := map[string]record{}
	txtByInstance := map[string]record{}
	aByInstance := map[string]record{}

	deadline := time.Now().Add(window)
	_ = conn.SetReadDeadline(deadline)
	buf := make([]byte, 9000)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return observed, ctx.Err()
		default:
		}
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				break
			}
			continue
		}
		msg, err := decodeMessage(buf[:n])
		if err != nil {
			continue
		}
		for _, ans := range msg.Answers {
			switch ans.Type {
			case rrTypePTR:
				if ans.Name == svcName {
					title := strings.TrimSuffix(strings.TrimSuffix(ans.PTRName, svcName), ".")
					observed[title] = true
				}
			case rrTypeSRV:
				srvByInstance[ans.Name] = ans
			case rrTypeTXT:
				txtByInstance[ans.Name] = ans
			case rrTypeA:
				aByInstance[ans.Name] = ans
			}
		}
	}

	count := 0
	for instance := range observed {
		instanceFQDN := instance + "." + svcName
		srv := srvByInstance[instanceFQDN]
		txt := txtByInstance[instanceFQDN]
		a := aByInstance[instanceFQDN]

		tsn := txt.TXT["TSN"]
		if tsn == "" {
			tsn = txt.TXT["tsn"]
		}
		tsn = strings.Trim(tsn, "{}")
		if tsn == "" {
			continue
		}

		addr := net.IP(a.A[:]).String()
		reg.Upsert(registry.TiVo{
			TSN:        tsn,
			Address:    addr,
			Port:       int(srv.SRVPort),
			Name:       instance,
			Protocol:   "https",
			Properties: txt.TXT,
		})
		metrics.ZeroconfScanDiscoveredTotal.Inc()
		count++
	}
	logger.Info().Str("event", "zeroconf.scan_complete").Int("discovered", count).Msg("zeroconf scan finished")
	return observed, nil
}
