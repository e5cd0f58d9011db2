package testing

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"net"
	"testing"
	"time"
)

const (
	dsuVersion    = 1001
	dsuHeaderSize = 16

	msgTypeVersion = 0x100000
	msgTypeInfo    = 0x100001
	msgTypeData    = 0x100002
)

// TestDsuClient drives a DSU server over a real UDP socket the way an
// emulator would: craft DSUC requests and checksum-verify DSUS replies.
type TestDsuClient struct {
	conn *net.UDPConn
	id   uint32
}

// SlotStatus is the controller header of an info reply.
type SlotStatus struct {
	Slot       uint8
	State      uint8
	Model      uint8
	Connection uint8
	MAC        [6]byte
	Battery    uint8
}

// DataFrame carries the fields of a data packet that tests care about.
type DataFrame struct {
	SlotStatus
	Connected   bool
	Counter     uint32
	Buttons1    uint8
	Buttons2    uint8
	LX          uint8
	LY          uint8
	RX          uint8
	RY          uint8
	TimestampUS uint64
}

func NewDsuClient(tb testing.TB, addr string) *TestDsuClient {
	tb.Helper()

	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		tb.Fatalf("resolve DSU addr: %v", err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		tb.Fatalf("dial DSU server: %v", err)
	}
	tb.Cleanup(func() { _ = conn.Close() })

	return &TestDsuClient{conn: conn, id: 0x70AD}
}

// RequestVersion asks for the protocol version and returns the reply value.
func (c *TestDsuClient) RequestVersion(timeout time.Duration) (uint16, error) {
	if err := c.send(msgTypeVersion, nil); err != nil {
		return 0, err
	}
	pkt, err := c.read(timeout)
	if err != nil {
		return 0, err
	}
	if got := binary.LittleEndian.Uint32(pkt[16:20]); got != msgTypeVersion {
		return 0, fmt.Errorf("unexpected reply message type %#x", got)
	}
	return binary.LittleEndian.Uint16(pkt[20:22]), nil
}

// RequestInfo queries the given slots and returns one status per slot.
func (c *TestDsuClient) RequestInfo(timeout time.Duration, slots ...uint8) ([]SlotStatus, error) {
	payload := make([]byte, 4+len(slots))
	binary.LittleEndian.PutUint32(payload[0:4], uint32(len(slots)))
	copy(payload[4:], slots)
	if err := c.send(msgTypeInfo, payload); err != nil {
		return nil, err
	}

	statuses := make([]SlotStatus, 0, len(slots))
	for range slots {
		pkt, err := c.read(timeout)
		if err != nil {
			return nil, err
		}
		if got := binary.LittleEndian.Uint32(pkt[16:20]); got != msgTypeInfo {
			return nil, fmt.Errorf("unexpected reply message type %#x", got)
		}
		statuses = append(statuses, parseSlotStatus(pkt))
	}
	return statuses, nil
}

// SubscribeAll asks for data from every slot.
func (c *TestDsuClient) SubscribeAll() error {
	payload := make([]byte, 8)
	return c.send(msgTypeData, payload)
}

// SubscribeSlot asks for data from a single slot.
func (c *TestDsuClient) SubscribeSlot(slot uint8) error {
	payload := make([]byte, 8)
	payload[0] = 1
	payload[1] = slot
	return c.send(msgTypeData, payload)
}

// ReadData blocks for the next data packet.
func (c *TestDsuClient) ReadData(timeout time.Duration) (DataFrame, error) {
	pkt, err := c.read(timeout)
	if err != nil {
		return DataFrame{}, err
	}
	if got := binary.LittleEndian.Uint32(pkt[16:20]); got != msgTypeData {
		return DataFrame{}, fmt.Errorf("unexpected reply message type %#x", got)
	}
	if len(pkt) < 100 {
		return DataFrame{}, fmt.Errorf("short data packet: %d bytes", len(pkt))
	}
	return DataFrame{
		SlotStatus:  parseSlotStatus(pkt),
		Connected:   pkt[31] == 1,
		Counter:     binary.LittleEndian.Uint32(pkt[32:36]),
		Buttons1:    pkt[36],
		Buttons2:    pkt[37],
		LX:          pkt[40],
		LY:          pkt[41],
		RX:          pkt[42],
		RY:          pkt[43],
		TimestampUS: binary.LittleEndian.Uint64(pkt[68:76]),
	}, nil
}

func parseSlotStatus(pkt []byte) SlotStatus {
	s := SlotStatus{
		Slot:       pkt[20],
		State:      pkt[21],
		Model:      pkt[22],
		Connection: pkt[23],
		Battery:    pkt[30],
	}
	copy(s.MAC[:], pkt[24:30])
	return s
}

func (c *TestDsuClient) send(msgType uint32, payload []byte) error {
	pkt := make([]byte, dsuHeaderSize+4+len(payload))
	copy(pkt[0:4], "DSUC")
	binary.LittleEndian.PutUint16(pkt[4:6], dsuVersion)
	binary.LittleEndian.PutUint16(pkt[6:8], uint16(4+len(payload)))
	binary.LittleEndian.PutUint32(pkt[12:16], c.id)
	binary.LittleEndian.PutUint32(pkt[16:20], msgType)
	copy(pkt[20:], payload)
	binary.LittleEndian.PutUint32(pkt[8:12], crc32.ChecksumIEEE(pkt))

	_, err := c.conn.Write(pkt)
	return err
}

// read returns the next verified server packet.
func (c *TestDsuClient) read(timeout time.Duration) ([]byte, error) {
	buf := make([]byte, 128)
	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	n, err := c.conn.Read(buf)
	if err != nil {
		return nil, err
	}
	pkt := buf[:n]
	if n < dsuHeaderSize+4 {
		return nil, fmt.Errorf("short packet: %d bytes", n)
	}
	if string(pkt[0:4]) != "DSUS" {
		return nil, fmt.Errorf("unexpected magic %q", pkt[0:4])
	}
	if v := binary.LittleEndian.Uint16(pkt[4:6]); v != dsuVersion {
		return nil, fmt.Errorf("unexpected protocol version %d", v)
	}
	want := binary.LittleEndian.Uint32(pkt[8:12])
	binary.LittleEndian.PutUint32(pkt[8:12], 0)
	if got := crc32.ChecksumIEEE(pkt); got != want {
		return nil, fmt.Errorf("checksum mismatch: %#x != %#x", got, want)
	}
	binary.LittleEndian.PutUint32(pkt[8:12], want)
	return pkt, nil
}
