package zeroconf

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/pytivogo/bridge/internal/config"
	"github.com/pytivogo/bridge/internal/log"
	"github.com/pytivogo/bridge/internal/metrics"
)

// contentSuffix maps a share kind to its DNS-SD service suffix, e.g.
// "tivo-videos" for _tivo-videos._tcp.
func contentSuffix(kind config.ShareKind) string {
	switch kind {
	case config.ShareVideo:
		return "tivo-videos"
	case config.ShareMusic:
		return "tivo-music"
	case config.SharePhotos:
		return "tivo-photos"
	default:
		return ""
	}
}

// Advertiser registers the "pyTivo Desktop" service and one service record
// per enumerable share, and answers mDNS queries for them (spec §4.2).
type Advertiser struct {
	hostIP net.IP
	port   int

	mu       sync.RWMutex
	records  map[string][]record // service-type FQDN -> PTR targets (+ their SRV/TXT)
	instance map[string]record   // instance FQDN -> its own record set keyed separately for SRV/TXT/A lookups
	renamed  map[string]string   // original share name -> renamed instance title

	conn *net.UDPConn
}

// NewAdvertiser builds an Advertiser bound to hostIP:port (the HTTP
// server's own address).
func NewAdvertiser(hostIP net.IP, port int) *Advertiser {
	return &Advertiser{
		hostIP:   hostIP,
		port:     port,
		records:  map[string][]record{},
		instance: map[string]record{},
		renamed:  map[string]string{},
	}
}

// Disabled reports whether zeroconf must stay off per spec §4.2: "disabled
// if any TSN-specific section has a shares= ACL".
func Disabled(cfg *config.Config) bool {
	if strings.EqualFold(cfg.Zeroconf, "false") {
		return true
	}
	return cfg.HasTSNShareACL
}

// RegisterDesktop advertises the fixed "pyTivo Desktop" _pytivo._tcp record.
func (a *Advertiser) RegisterDesktop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	svcType := serviceTypeFQDN("pytivo")
	instanceFQDN := "pyTivo Desktop." + svcType

	txt := map[string]string{"path": "/Desktop", "platform": platformMainConst, "protocol": "http"}
	a.addInstance(svcType, instanceFQDN, txt, a.hostIP, a.port)
}

const platformMainConst = "pyTivo"
const platformVideoConst = "pc/pyTivo"

// RegisterShare advertises share under its content-type service, applying
// the " [N]" collision-rename rule against names already seen (via
// observedNames, typically gathered by an initial Scan) and remembering the
// rename, which RenameOf reports (spec §4.2). The HTTP root-container
// listing does not consult RenameOf and lists shares under their
// configured names.
func (a *Advertiser) RegisterShare(share config.Share, observedNames map[string]bool, tsn string) (title string, ok bool) {
	suffix := contentSuffix(share.Kind)
	if suffix == "" {
		return "", false
	}
	svcType := serviceTypeFQDN(suffix)

	title = share.Name
	count := 1
	for observedNames[title] {
		count++
		title = fmt.Sprintf("%s [%d]", share.Name, count)
	}
	if title != share.Name {
		a.mu.Lock()
		a.renamed[share.Name] = title
		a.mu.Unlock()
	}

	platform := platformVideoConst
	if share.Kind != config.ShareVideo {
		platform = platformMainConst
	}
	txt := map[string]string{
		"path":     fmt.Sprintf("/TiVoConnect?Command=QueryContainer&Container=%s", share.Name),
		"platform": platform,
		"protocol": "http",
		"tsn":      "{" + tsn + "}",
	}
	instanceFQDN := title + "." + svcType
	a.addInstance(svcType, instanceFQDN, txt, a.hostIP, a.port)
	return title, true
}

func (a *Advertiser) addInstance(svcType, instanceFQDN string, txt map[string]string, ip net.IP, port int) {
	ptr := record{Name: svcType, Type: rrTypePTR, Class: classIN, TTL: 4500, PTRName: instanceFQDN}
	srv := record{Name: instanceFQDN, Type: rrTypeSRV, Class: classIN | classFlush, TTL: 120, SRVHost: instanceFQDN, SRVPort: uint16(port)}
	txtRec := record{Name: instanceFQDN, Type: rrTypeTXT, Class: classIN | classFlush, TTL: 4500, TXT: txt}
	var aRec record
	if ip4 := ip.To4(); ip4 != nil {
		aRec = record{Name: instanceFQDN, Type: rrTypeA, Class: classIN | classFlush, TTL: 120}
		copy(aRec.A[:], ip4)
	}

	a.records[svcType] = append(a.records[svcType], ptr)
	a.instance[instanceFQDN] = srv
	a.instance[instanceFQDN+"#txt"] = txtRec
	if ip.To4() != nil {
		a.instance[instanceFQDN+"#a"] = aRec
	}
	metrics.ZeroconfRegisteredRecords.Inc()
}

// RenameOf returns the renamed title for a share, if a collision occurred.
func (a *Advertiser) RenameOf(shareName string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	t, ok := a.renamed[shareName]
	return t, ok
}

// Serve listens for mDNS queries on the multicast group and answers any
// question naming a registered service type, until ctx is cancelled.
// Questions naming a single instance are not answered.
func (a *Advertiser) Serve(ctx context.Context) error {
	addr := &net.UDPAddr{IP: net.ParseIP(MulticastAddr), Port: MulticastPort}
	conn, err := net.ListenMulticastUDP("udp4", nil, addr)
	if err != nil {
		return fmt.Errorf("zeroconf: listening multicast: %w", err)
	}
	a.conn = conn
	logger := log.WithComponent("zeroconf")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 9000)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				logger.Debug().Err(err).Msg("zeroconf read failed")
				continue
			}
		}
		msg, err := decodeMessage(buf[:n])
		if err != nil || msg.Response {
			continue
		}
		a.answer(conn, src, msg)
	}
}

func (a *Advertiser) answer(conn *net.UDPConn, src *net.UDPAddr, q *message) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var answers []record
	for _, question := range q.Questions {
		// decodeName drops the trailing root dot that the record keys carry.
		name := strings.TrimSuffix(question.Name, ".") + "."
		if ptrs, ok := a.records[name]; ok {
			for _, ptr := range ptrs {
				answers = append(answers, ptr)
				if srv, ok := a.instance[ptr.PTRName]; ok {
					answers = append(answers, srv)
				}
				if txt, ok := a.instance[ptr.PTRName+"#txt"]; ok {
					answers = append(answers, txt)
				}
				if aRec, ok := a.instance[ptr.PTRName+"#a"]; ok {
					answers = append(answers, aRec)
				}
			}
		}
	}
	if len(answers) == 0 {
		return
	}
	resp := &message{ID: q.ID, Answers: answers}
	_, _ = conn.WriteToUDP(resp.encodeResponse(), &net.UDPAddr{IP: net.ParseIP(MulticastAddr), Port: MulticastPort})
	_ = src
}
