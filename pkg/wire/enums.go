package wire

// DeviceKind classifies a device as a sensor or an actuator.
type DeviceKind uint8

const (
	KindUnknown DeviceKind = iota
	KindSensor
	KindActuator
)

func (k DeviceKind) String() string {
	switch k {
	case KindSensor:
		return "SENSOR_KIND"
	case KindActuator:
		return "ACTUATOR_KIND"
	default:
		return "UNKNOWN_KIND"
	}
}

// ParseDeviceKind maps a TXT entry value back to a DeviceKind.
func ParseDeviceKind(s string) DeviceKind {
	switch s {
	case "SENSOR_KIND", "sensor":
		return KindSensor
	case "ACTUATOR_KIND", "actuator":
		return KindActuator
	default:
		return KindUnknown
	}
}

// DeviceCategory is the closed set of device categories on the network.
type DeviceCategory uint8

const (
	CategoryUnknown DeviceCategory = iota
	CategoryLightLamp
	CategoryFartDetector
	CategoryToilet
	CategorySink
	CategoryWaterLeak
)

func (c DeviceCategory) String() string {
	switch c {
	case CategoryLightLamp:
		return "LIGHT_LAMP"
	case CategoryFartDetector:
		return "FART_DETECTOR"
	case CategoryToilet:
		return "TOILET"
	case CategorySink:
		return "SINK"
	case CategoryWaterLeak:
		return "WATER_LEAK"
	default:
		return "UNKNOWN_CATEGORY"
	}
}

// ParseDeviceCategory maps a TXT entry value back to a DeviceCategory.
func ParseDeviceCategory(s string) DeviceCategory {
	switch s {
	case "LIGHT_LAMP":
		return CategoryLightLamp
	case "FART_DETECTOR":
		return CategoryFartDetector
	case "TOILET":
		return CategoryToilet
	case "SINK":
		return CategorySink
	case "WATER_LEAK":
		return CategoryWaterLeak
	default:
		return CategoryUnknown
	}
}

// TransportProtocol is the transport a device endpoint listens on.
type TransportProtocol uint8

const (
	TransportUnknown TransportProtocol = iota
	TransportTCP
	TransportUDP
)

func (t TransportProtocol) String() string {
	switch t {
	case TransportTCP:
		return "TCP_PROTOCOL"
	case TransportUDP:
		return "UDP_PROTOCOL"
	default:
		return "UNKNOWN_PROTOCOL"
	}
}

// ParseTransportProtocol maps an SRV protocol label back to a TransportProtocol.
func ParseTransportProtocol(s string) TransportProtocol {
	switch s {
	case "TCP_PROTOCOL", "_tcp":
		return TransportTCP
	case "UDP_PROTOCOL", "_udp":
		return TransportUDP
	default:
		return TransportUnknown
	}
}

// DeviceStatus is the gateway's liveness verdict for a device.
type DeviceStatus uint8

const (
	StatusUnknown DeviceStatus = iota
	StatusOffline
	StatusOnline
	StatusError
)

func (s DeviceStatus) String() string {
	switch s {
	case StatusOffline:
		return "OFFLINE_DEVICE_STATUS"
	case StatusOnline:
		return "ONLINE_DEVICE_STATUS"
	case StatusError:
		return "ERROR_DEVICE_STATUS"
	default:
		return "UNKNOWN_DEVICE_STATUS"
	}
}

// ErrorCode is the closed error taxonomy surfaced to clients.
type ErrorCode uint8

const (
	ErrorCodeUnknown ErrorCode = iota
	ErrorCodeDeviceNotFound
	ErrorCodeInvalidCommand
	ErrorCodeDeviceOffline
	ErrorCodeValidation
)

func (e ErrorCode) String() string {
	switch e {
	case ErrorCodeDeviceNotFound:
		return "DEVICE_NOT_FOUND"
	case ErrorCodeInvalidCommand:
		return "INVALID_COMMAND"
	case ErrorCodeDeviceOffline:
		return "DEVICE_OFFLINE"
	case ErrorCodeValidation:
		return "VALIDATION_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// RecordType identifies an mDNS record arm on the wire.
type RecordType uint8

const (
	RecordTypePTR RecordType = iota + 1
	RecordTypeSRV
	RecordTypeTXT
	RecordTypeA
)

func (r RecordType) String() string {
	switch r {
	case RecordTypePTR:
		return "PTR"
	case RecordTypeSRV:
		return "SRV"
	case RecordTypeTXT:
		return "TXT"
	case RecordTypeA:
		return "A"
	default:
		return "UNKNOWN"
	}
}
