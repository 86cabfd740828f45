// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	applog "minipiano/internal/log"
	"minipiano/internal/transport"
)

/*
Packet layout (BigEndian):

	|<-- 4 Bytes -->|<---- 8 Bytes ---->|<-- 4 Bytes -->|<- 2 Bytes ->|<--- N * 4 Bytes --->|
	+---------------+-------------------+---------------+-------------+---------------------+
	|   Sequence    |     Timestamp     |   Frequency   |  Bin Count  |     Magnitudes      |
	|   (uint32)    |  (int64, ns UTC)  |   (float32)   |  (uint16)   |   (N * float32)     |
	+---------------+-------------------+---------------+-------------+---------------------+

Only the usable half of the spectrum (bins 0..N/2) is sent; the upper bins
mirror it for real input.
*/

// HeaderSize is the number of bytes before the magnitudes.
const HeaderSize = 4 + 8 + 4 + 2

// Packet is the decoded form of one datagram.
type Packet struct {
	Sequence  uint32
	Timestamp int64
	Frequency float32
	Bins      []float32
}

// EncodePacket writes frame into buf using the layout above. scratch is
// reused for the float32 conversion and returned, grown if needed.
func EncodePacket(buf *bytes.Buffer, frame *transport.Frame, scratch []float32) ([]float32, error) {
	usable := min(len(frame.Bins)/2+1, len(frame.Bins))
	if usable > math.MaxUint16 {
		return scratch, fmt.Errorf("too many bins for one packet: %d", usable)
	}
	if cap(scratch) < usable {
		scratch = make([]float32, usable)
	}
	scratch = scratch[:usable]
	for i := range scratch {
		scratch[i] = float32(frame.Bins[i])
	}

	buf.Reset()
	err := binary.Write(buf, binary.BigEndian, frame.Sequence)
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, frame.Timestamp.UnixNano())
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, float32(frame.Frequency))
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, uint16(usable))
	}
	if err == nil {
		err = binary.Write(buf, binary.BigEndian, scratch)
	}
	return scratch, err
}

// DecodePacket parses a datagram produced by EncodePacket.
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("packet too short: %d bytes", len(data))
	}

	r := bytes.NewReader(data)
	var (
		p     Packet
		count uint16
	)
	err := binary.Read(r, binary.BigEndian, &p.Sequence)
	if err == nil {
		err = binary.Read(r, binary.BigEndian, &p.Timestamp)
	}
	if err == nil {
		err = binary.Read(r, binary.BigEndian, &p.Frequency)
	}
	if err == nil {
		err = binary.Read(r, binary.BigEndian, &count)
	}
	if err != nil {
		return nil, err
	}

	p.Bins = make([]float32, count)
	if err := binary.Read(r, binary.BigEndian, p.Bins); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("packet truncated: want %d bins", count)
		}
		return nil, err
	}
	return &p, nil
}

// Transport packs frames into binary datagrams and sends them over UDP.
type Transport struct {
	sender  *UDPSender
	packet  *bytes.Buffer
	scratch []float32
}

// NewTransport creates a UDP transport targeting address.
func NewTransport(address string) (*Transport, error) {
	sender, err := NewUDPSender(address)
	if err != nil {
		return nil, err
	}
	return &Transport{
		sender: sender,
		packet: new(bytes.Buffer),
	}, nil
}

// Send encodes and transmits frame. Callers must serialize Send.
func (t *Transport) Send(frame *transport.Frame) error {
	var err error
	t.scratch, err = EncodePacket(t.packet, frame, t.scratch)
	if err != nil {
		return fmt.Errorf("failed to encode packet %d: %w", frame.Sequence, err)
	}
	if err := t.sender.Send(t.packet.Bytes()); err != nil {
		return err
	}
	applog.Debugf("UDP Transport: Sent packet %d (%d bytes)", frame.Sequence, t.packet.Len())
	return nil
}

// Close closes the underlying sender.
func (t *Transport) Close() error {
	return t.sender.Close()
}

var _ transport.Transport = (*Transport)(nil)
