package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

// MaxMessageSize bounds every framed message on the network. Frames larger
// than this are rejected without being read.
const MaxMessageSize = 64 * 1024

var (
	// ErrShortBuffer reports a truncated message.
	ErrShortBuffer = errors.New("wire: short buffer")
	// ErrTrailingBytes reports extra bytes after a complete message.
	ErrTrailingBytes = errors.New("wire: trailing bytes after message")
	// ErrUnknownTag reports an unrecognized union tag.
	ErrUnknownTag = errors.New("wire: unknown tag")
	// ErrOversized reports a length field exceeding MaxMessageSize.
	ErrOversized = errors.New("wire: message exceeds size limit")
)

// writer accumulates big-endian encoded fields.
type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) u16(v uint16) { w.buf = binary.BigEndian.AppendUint16(w.buf, v) }
func (w *writer) u32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *writer) i32(v int32)  { w.u32(uint32(v)) }
func (w *writer) i64(v int64)  { w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v)) }

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) string(s string) {
	if len(s) > math.MaxUint16 {
		s = s[:math.MaxUint16]
	}
	w.u16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

// stringMap encodes entries sorted by key so encoding is deterministic.
func (w *writer) stringMap(m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	w.u16(uint16(len(keys)))
	for _, k := range keys {
		w.string(k)
		w.string(m[k])
	}
}

// reader consumes big-endian encoded fields, returning ErrShortBuffer on
// truncation instead of panicking.
type reader struct {
	buf []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.buf) {
		r.err = ErrShortBuffer
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) i32() int32 { return int32(r.u32()) }

func (r *reader) i64() int64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

func (r *reader) bool() bool { return r.u8() != 0 }

func (r *reader) string() string {
	n := int(r.u16())
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *reader) stringMap() map[string]string {
	n := int(r.u16())
	m := make(map[string]string, n)
	for i := 0; i < n && r.err == nil; i++ {
		k := r.string()
		v := r.string()
		m[k] = v
	}
	return m
}

func (r *reader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return ErrTrailingBytes
	}
	return nil
}

// --- Packet ---

// EncodePacket serializes a discovery packet without its length prefix.
func EncodePacket(p *Packet) ([]byte, error) {
	if p.Body == nil {
		return nil, fmt.Errorf("wire: packet has no body")
	}
	w := &writer{}
	w.u32(p.TransactionID)
	w.i64(p.Timestamp)
	w.u8(p.Body.packetTag())
	switch b := p.Body.(type) {
	case QueryRequest:
		w.u16(uint16(len(b.Questions)))
		for _, q := range b.Questions {
			w.string(q.Name)
			w.u8(uint8(q.Type))
		}
	case QueryResponse:
		encodeRecords(w, b.Answers)
		encodeRecords(w, b.AdditionalRecords)
	default:
		return nil, fmt.Errorf("%w: packet body %T", ErrUnknownTag, p.Body)
	}
	return w.buf, nil
}

// DecodePacket parses a discovery packet from its unframed bytes.
func DecodePacket(data []byte) (*Packet, error) {
	r := &reader{buf: data}
	p := &Packet{
		TransactionID: r.u32(),
		Timestamp:     r.i64(),
	}
	tag := r.u8()
	switch tag {
	case packetTagQueryRequest:
		n := int(r.u16())
		qs := make([]Question, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			qs = append(qs, Question{Name: r.string(), Type: RecordType(r.u8())})
		}
		p.Body = QueryRequest{Questions: qs}
	case packetTagQueryResponse:
		answers := decodeRecords(r)
		additionals := decodeRecords(r)
		p.Body = QueryResponse{Answers: answers, AdditionalRecords: additionals}
	default:
		if r.err != nil {
			return nil, r.err
		}
		return nil, fmt.Errorf("%w: packet body tag %d", ErrUnknownTag, tag)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return p, nil
}

func encodeRecords(w *writer, records []Record) {
	w.u16(uint16(len(records)))
	for _, rec := range records {
		encodeRecord(w, rec)
	}
}

func encodeRecord(w *writer, rec Record) {
	w.u8(uint8(rec.Type()))
	w.string(rec.Name)
	w.u32(rec.TTL)
	w.bool(rec.CacheFlush)
	switch d := rec.Data.(type) {
	case PTRRecord:
		w.string(d.Name)
		w.string(d.DomainName)
	case SRVRecord:
		w.string(d.Name)
		w.u8(uint8(d.Protocol))
		w.string(d.Service)
		w.string(d.Instance)
		w.u16(d.Port)
		w.string(d.Target)
	case TXTRecord:
		w.string(d.Name)
		w.stringMap(d.Entries)
	case ARecord:
		w.string(d.Name)
		w.string(d.Address)
	}
}

func decodeRecords(r *reader) []Record {
	n := int(r.u16())
	records := make([]Record, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		records = append(records, decodeRecord(r))
	}
	return records
}

func decodeRecord(r *reader) Record {
	tag := RecordType(r.u8())
	rec := Record{
		Name:       r.string(),
		TTL:        r.u32(),
		CacheFlush: r.bool(),
	}
	switch tag {
	case RecordTypePTR:
		rec.Data = PTRRecord{Name: r.string(), DomainName: r.string()}
	case RecordTypeSRV:
		rec.Data = SRVRecord{
			Name:     r.string(),
			Protocol: TransportProtocol(r.u8()),
			Service:  r.string(),
			Instance: r.string(),
			Port:     r.u16(),
			Target:   r.string(),
		}
	case RecordTypeTXT:
		rec.Data = TXTRecord{Name: r.string(), Entries: r.stringMap()}
	case RecordTypeA:
		rec.Data = ARecord{Name: r.string(), Address: r.string()}
	default:
		if r.err == nil {
			r.err = fmt.Errorf("%w: record tag %d", ErrUnknownTag, tag)
		}
	}
	return rec
}

// --- Request ---

// EncodeRequest serializes a request without its length prefix.
func EncodeRequest(req Request) ([]byte, error) {
	w := &writer{}
	switch b := req.(type) {
	case EmptyRequest:
		w.u8(requestTagEmpty)
	case ListDevicesRequest:
		w.u8(requestTagListDevices)
		w.u8(uint8(b.Kind))
		w.string(b.Name)
	case SendActuatorCommandRequest:
		w.u8(requestTagSendActuatorCommand)
		w.string(b.DeviceID)
		if err := encodeAction(w, b.Action); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: request %T", ErrUnknownTag, req)
	}
	return w.buf, nil
}

// DecodeRequest parses a request from its unframed bytes.
func DecodeRequest(data []byte) (Request, error) {
	r := &reader{buf: data}
	var req Request
	tag := r.u8()
	switch tag {
	case requestTagEmpty:
		req = EmptyRequest{}
	case requestTagListDevices:
		req = ListDevicesRequest{Kind: DeviceKind(r.u8()), Name: r.string()}
	case requestTagSendActuatorCommand:
		deviceID := r.string()
		action := decodeAction(r)
		req = SendActuatorCommandRequest{DeviceID: deviceID, Action: action}
	default:
		if r.err != nil {
			return nil, r.err
		}
		return nil, fmt.Errorf("%w: request tag %d", ErrUnknownTag, tag)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return req, nil
}

func encodeAction(w *writer, action ActuatorAction) error {
	switch a := action.(type) {
	case LightLampAction:
		w.u8(actionTagLightLamp)
		w.optBool(a.TurnOn)
		w.optI32(a.Brightness)
		w.optI32(a.Color)
	case SinkAction:
		w.u8(actionTagSink)
		w.optBool(a.TurnOn)
	case nil:
		w.u8(0)
	default:
		return fmt.Errorf("%w: action %T", ErrUnknownTag, action)
	}
	return nil
}

func decodeAction(r *reader) ActuatorAction {
	tag := r.u8()
	switch tag {
	case actionTagLightLamp:
		return LightLampAction{
			TurnOn:     r.optBool(),
			Brightness: r.optI32(),
			Color:      r.optI32(),
		}
	case actionTagSink:
		return SinkAction{TurnOn: r.optBool()}
	case 0:
		return nil
	default:
		if r.err == nil {
			r.err = fmt.Errorf("%w: action tag %d", ErrUnknownTag, tag)
		}
		return nil
	}
}

func (w *writer) optBool(v *bool) {
	if v == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.bool(*v)
}

func (w *writer) optI32(v *int32) {
	if v == nil {
		w.u8(0)
		return
	}
	w.u8(1)
	w.i32(*v)
}

func (r *reader) optBool() *bool {
	if r.u8() == 0 {
		return nil
	}
	v := r.bool()
	return &v
}

func (r *reader) optI32() *int32 {
	if r.u8() == 0 {
		return nil
	}
	v := r.i32()
	return &v
}

// --- Response ---

// EncodeResponse serializes a response without its length prefix.
func EncodeResponse(resp Response) ([]byte, error) {
	w := &writer{}
	switch b := resp.(type) {
	case EmptyResponse:
		w.u8(responseTagEmpty)
	case ErrorDetails:
		w.u8(responseTagError)
		w.u8(uint8(b.Code))
		w.string(b.Message)
		w.stringMap(b.Metadata)
	case SendActuatorCommandResponse:
		w.u8(responseTagSendActuatorCommand)
		w.string(b.Message)
	case ListConnectedDevicesResponse:
		w.u8(responseTagListConnectedDevices)
		w.u16(uint16(len(b.Devices)))
		for i := range b.Devices {
			encodeConnectedDevice(w, &b.Devices[i])
		}
	default:
		return nil, fmt.Errorf("%w: response %T", ErrUnknownTag, resp)
	}
	return w.buf, nil
}

// DecodeResponse parses a response from its unframed bytes.
func DecodeResponse(data []byte) (Response, error) {
	r := &reader{buf: data}
	var resp Response
	tag := r.u8()
	switch tag {
	case responseTagEmpty:
		resp = EmptyResponse{}
	case responseTagError:
		resp = ErrorDetails{
			Code:     ErrorCode(r.u8()),
			Message:  r.string(),
			Metadata: r.stringMap(),
		}
	case responseTagSendActuatorCommand:
		resp = SendActuatorCommandResponse{Message: r.string()}
	case responseTagListConnectedDevices:
		n := int(r.u16())
		devices := make([]ConnectedDevice, 0, n)
		for i := 0; i < n && r.err == nil; i++ {
			devices = append(devices, decodeConnectedDevice(r))
		}
		resp = ListConnectedDevicesResponse{Devices: devices}
	default:
		if r.err != nil {
			return nil, r.err
		}
		return nil, fmt.Errorf("%w: response tag %d", ErrUnknownTag, tag)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	return resp, nil
}

// --- ConnectedDevice ---

// EncodeConnectedDevice serializes one registry snapshot, as pushed
// base64-encoded on the gateway event stream.
func EncodeConnectedDevice(d *ConnectedDevice) []byte {
	w := &writer{}
	encodeConnectedDevice(w, d)
	return w.buf
}

// DecodeConnectedDevice parses one registry snapshot.
func DecodeConnectedDevice(data []byte) (*ConnectedDevice, error) {
	r := &reader{buf: data}
	d := decodeConnectedDevice(r)
	if err := r.done(); err != nil {
		return nil, err
	}
	return &d, nil
}

func encodeConnectedDevice(w *writer, d *ConnectedDevice) {
	w.string(d.ID)
	w.string(d.DeviceName)
	w.u8(uint8(d.Kind))
	w.u8(uint8(d.Category))
	w.u8(uint8(d.Status))
	w.u8(uint8(d.Transport))
	w.u16(d.Port)
	w.u16(uint16(len(d.Addresses)))
	for _, a := range d.Addresses {
		w.string(a)
	}
	w.stringMap(d.Properties)
}

func decodeConnectedDevice(r *reader) ConnectedDevice {
	d := ConnectedDevice{
		ID:         r.string(),
		DeviceName: r.string(),
		Kind:       DeviceKind(r.u8()),
		Category:   DeviceCategory(r.u8()),
		Status:     DeviceStatus(r.u8()),
		Transport:  TransportProtocol(r.u8()),
		Port:       r.u16(),
	}
	n := int(r.u16())
	d.Addresses = make([]string, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		d.Addresses = append(d.Addresses, r.string())
	}
	d.Properties = r.stringMap()
	return d
}
