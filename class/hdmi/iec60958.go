package hdmi

// IEC60958Status is a raw IEC 60958 channel status block.
type IEC60958Status [24]byte

// AudioFormat identifies the stream carried by a channel status block.
type AudioFormat uint8

// Audio formats decoded by [IEC60958Status.AudioFormat].
const (
	Unencrypted2ChLPCM    AudioFormat = 0
	UnencryptedCompressed AudioFormat = 2
	EncryptedCompressed   AudioFormat = 6
	UnencryptedNChLPCM    AudioFormat = 16
	EncryptedNChLPCM      AudioFormat = 22
	UnencryptedFormat     AudioFormat = 24
	EncryptedFormat       AudioFormat = 30
)

// Professional reports professional use of the block.
func (s *IEC60958Status) Professional() bool { return s[0]&0x1 != 0 }

// LPCM reports whether the main data field carries linear PCM samples.
func (s *IEC60958Status) LPCM() bool { return s[0]&0x2 == 0 }

// AudioFormat returns the format code built from bits 0, 1 and 3..5 of the
// first byte.
func (s *IEC60958Status) AudioFormat() AudioFormat {
	return AudioFormat(s[0]&0x3 | (s[0]&0x38)>>1)
}

// SamplingCoefficient returns the audio sampling frequency coefficient.
func (s *IEC60958Status) SamplingCoefficient() uint8 { return s[5] >> 3 & 0xf }

// Channels returns the channel count of a multichannel LPCM stream, or -1
// when the block describes anything else.
func (s *IEC60958Status) Channels() int {
	switch s.AudioFormat() {
	case UnencryptedNChLPCM, EncryptedNChLPCM:
	default:
		return -1
	}
	switch s.SamplingCoefficient() {
	case 0:
		return 2
	case 7:
		return 8
	case 11:
		return 16
	case 3:
		return 32
	}
	return -1
}

// CustomFormatLayout describes the frame of a custom audio format as bit
// positions.
type CustomFormatLayout struct {
	DataStart     uint8
	DataLength    uint8
	ValidityBit   uint8
	ParityBit     uint8
	UserBit       uint8
	StatusBit     uint8
	BlockStartBit uint8
	Width         uint8
}
