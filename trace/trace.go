// Package trace reads egress tap captures and reduces them to the
// per-packet flow id streams the HashPipe baseline consumes.
package trace

import (
	"bytes"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/printqueue/analysis/analysis"
)

// ReadPcap extracts the flow ids of all IPv4 TCP packets in a pcap
// stream, in capture order.
func ReadPcap(data []byte) ([]analysis.Fid, error) {
	pcap, err := pcapgo.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var fids []analysis.Fid
	for {
		raw, _, err := pcap.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		pkt := gopacket.NewPacket(raw, layers.LayerTypeEthernet, gopacket.DecodeOptions{
			Lazy:   true,
			NoCopy: true,
		})
		ip, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
		if !ok {
			continue
		}
		if ip.Protocol != layers.IPProtocolTCP {
			continue
		}
		fids = append(fids, analysis.NewFid(ip.SrcIP, ip.DstIP))
	}
	return fids, nil
}

// ReadPcapFile is ReadPcap over a file on disk.
func ReadPcapFile(path string) ([]analysis.Fid, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ReadPcap(data)
}
