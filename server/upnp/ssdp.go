package upnp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"golang.org/x/net/ipv4"

	"github.com/eems/eems/log"
)

const (
	ssdpAddr     = "239.255.255.250:1900"
	ssdpMaxAge   = 1800
	ssdpTTL      = 4
	ssdpBufferSz = 1500
)

// searchTargets this server answers for. ssdp:all is deliberately not
// handled; renderers that matter query the device or root target directly.
var searchTargets = map[string]bool{
	"upnp:rootdevice": true,
	deviceType:        true,
}

// SSDPResponder answers multicast M-SEARCH discovery probes with a unicast
// pointer at the device description.
type SSDPResponder struct {
	uuid    string
	baseURL string
}

func NewSSDPResponder(uuid, baseURL string) *SSDPResponder {
	return &SSDPResponder{uuid: uuid, baseURL: baseURL}
}

// Serve joins the SSDP multicast group and replies to matching probes until
// ctx is cancelled.
func (s *SSDPResponder) Serve(ctx context.Context) error {
	group, err := net.ResolveUDPAddr("udp4", ssdpAddr)
	if err != nil {
		return fmt.Errorf("resolving SSDP address: %w", err)
	}
	conn, err := net.ListenMulticastUDP("udp4", nil, group)
	if err != nil {
		return fmt.Errorf("joining SSDP multicast group: %w", err)
	}
	defer conn.Close()

	p := ipv4.NewPacketConn(conn)
	if err := p.SetMulticastTTL(ssdpTTL); err != nil {
		log.Warn("Failed to set multicast TTL", err)
	}

	log.Info("SSDP responder listening", "group", ssdpAddr, "location", s.baseURL+"/upnp/device")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, ssdpBufferSz)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading SSDP datagram: %w", err)
		}

		reply := s.handleDatagram(buf[:n])
		if reply == nil {
			continue
		}
		log.Debug("Answering M-SEARCH", "from", src.String())
		if _, err := conn.WriteToUDP(reply, src); err != nil {
			log.Warn("Failed to send SSDP response", err, "to", src.String())
		}
	}
}

// handleDatagram parses one datagram and returns the response to unicast
// back, or nil when the datagram is not a matching M-SEARCH.
func (s *SSDPResponder) handleDatagram(data []byte) []byte {
	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil
	}
	if req.Method != "M-SEARCH" || req.RequestURI != "*" {
		return nil
	}
	if req.Header.Get("Man") != `"ssdp:discover"` {
		return nil
	}
	st := req.Header.Get("St")
	if !searchTargets[st] {
		return nil
	}

	var b strings.Builder
	b.WriteString("HTTP/1.1 200 OK\r\n")
	fmt.Fprintf(&b, "Cache-Control: max-age=%d\r\n", ssdpMaxAge)
	fmt.Fprintf(&b, "Location: %s/upnp/device\r\n", s.baseURL)
	fmt.Fprintf(&b, "ST: %s\r\n", st)
	fmt.Fprintf(&b, "USN: uuid:%s::%s\r\n", s.uuid, st)
	b.WriteString("EXT:\r\n")
	b.WriteString("\r\n")
	return []byte(b.String())
}
