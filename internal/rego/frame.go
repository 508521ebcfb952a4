package rego

import "fmt"

// Frame sizes in bytes.
const (
	RequestSize         = 9
	ValueResponseSize   = 5
	ConfirmResponseSize = 1
	TextResponseSize    = 42
)

// Request is one host-to-controller frame before encoding.
type Request struct {
	Command Command
	Address uint16
	Data    uint16
}

// Encode serialises the request into its 9-byte wire form.
//
// Command ids above 0x7F are masked to seven bits; use Command.Valid to
// reject them earlier.
func (r Request) Encode() []byte {
	frame := make([]byte, RequestSize)
	frame[0] = AddrHeatPump
	frame[1] = byte(r.Command) & 0x7F //nolint:mnd // 7-bit command byte

	addr := pack7(r.Address)
	data := pack7(r.Data)
	copy(frame[2:5], addr[:])
	copy(frame[5:8], data[:])

	frame[8] = Checksum(frame[2:8])
	return frame
}

// String returns a compact description for logging.
func (r Request) String() string {
	return fmt.Sprintf("%s addr=0x%04X data=0x%04X", r.Command, r.Address, r.Data)
}

// EncodeRequest builds a request frame for a read or a raw write.
//
// Parameters:
//   - cmd: Command id (0x00-0x7F)
//   - address: Register address
//   - data: Raw 16-bit payload (zero for reads)
//
// Returns:
//   - []byte: 9-byte request frame
func EncodeRequest(cmd Command, address, data uint16) []byte {
	return Request{Command: cmd, Address: address, Data: data}.Encode()
}

// EncodeWrite builds a write frame carrying a physical value, scaled with FromFloat.
func EncodeWrite(cmd Command, address uint16, value float64) []byte {
	return EncodeRequest(cmd, address, FromFloat(value))
}

// ParseRequest decodes a 9-byte request frame. It is the inverse of Encode and
// is used by the controller simulator.
func ParseRequest(frame []byte) (Request, error) {
	if len(frame) < RequestSize {
		return Request{}, fmt.Errorf("%w: %d bytes, need %d", ErrInvalidRequest, len(frame), RequestSize)
	}
	if frame[0] != AddrHeatPump {
		return Request{}, fmt.Errorf("%w: device address 0x%02X", ErrInvalidRequest, frame[0])
	}
	if sum := Checksum(frame[2:8]); sum != frame[8] {
		return Request{}, fmt.Errorf("%w: checksum 0x%02X, computed 0x%02X", ErrInvalidRequest, frame[8], sum)
	}

	return Request{
		Command: Command(frame[1]),
		Address: unpack7(frame[2:5]),
		Data:    unpack7(frame[5:8]),
	}, nil
}

// Checksum returns the XOR of all bytes in data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum ^= b
	}
	return sum
}

// DecodeValue validates a standard 5-byte response and returns its raw value.
//
// Returns:
//   - uint16: Raw register value (see ToFloat, ToBool)
//   - error: *FrameTooShortError, *UnexpectedAddressError or *ChecksumError
func DecodeValue(frame []byte) (uint16, error) {
	if err := validate(frame, ValueResponseSize); err != nil {
		return 0, err
	}
	return unpack7(frame[1:4]), nil
}

// DecodeConfirm validates the single-byte response to a write.
func DecodeConfirm(frame []byte) error {
	if len(frame) < ConfirmResponseSize {
		return &FrameTooShortError{Want: ConfirmResponseSize, Got: len(frame)}
	}
	if frame[0] != AddrHost {
		return &UnexpectedAddressError{Want: AddrHost, Got: frame[0]}
	}
	return nil
}

// EncodeValueResponse builds the standard response a controller sends for raw.
func EncodeValueResponse(raw uint16) []byte {
	frame := make([]byte, ValueResponseSize)
	frame[0] = AddrHost
	v := pack7(raw)
	copy(frame[1:4], v[:])
	frame[4] = Checksum(frame[1:4])
	return frame
}

// EncodeConfirmResponse returns the single confirm byte.
func EncodeConfirmResponse() []byte {
	return []byte{AddrHost}
}

// validate checks length, address and trailing checksum of a response with
// the given fixed size. The checksum covers every byte between the address
// and the checksum itself.
func validate(frame []byte, size int) error {
	if len(frame) < size {
		return &FrameTooShortError{Want: size, Got: len(frame)}
	}
	if frame[0] != AddrHost {
		return &UnexpectedAddressError{Want: AddrHost, Got: frame[0]}
	}
	if sum := Checksum(frame[1 : size-1]); sum != frame[size-1] {
		return &ChecksumError{Expected: sum, Actual: frame[size-1]}
	}
	return nil
}

// pack7 spreads a 16-bit value over three 7-bit bytes, MSB first.
func pack7(v uint16) [3]byte {
	return [3]byte{
		byte(v>>14) & 0x03, //nolint:mnd // top two bits
		byte(v>>7) & 0x7F,  //nolint:mnd // middle seven bits
		byte(v) & 0x7F,     //nolint:mnd // low seven bits
	}
}

// unpack7 joins three 7-bit bytes into a 16-bit value.
func unpack7(b []byte) uint16 {
	return uint16(b[0]&0x03)<<14 | uint16(b[1]&0x7F)<<7 | uint16(b[2]&0x7F)
}
