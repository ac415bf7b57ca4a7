// Package ntsm implements the NTSM model container: a fixed header
// followed by a GLB blob and optional particle emitter records.
package ntsm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	Magic      = "NTSM"
	Version    = 1
	HeaderSize = 192 // header plus zero padding

	// FlagParticles marks a container carrying emitter records.
	FlagParticles = 0x01
)

// ErrInvalid reports a malformed container.
var ErrInvalid = errors.New("ntsm: invalid container")

type Header struct {
	Magic          [4]byte
	Version        uint32
	Name           [128]byte
	Flags          uint8
	_              [3]byte
	GLBOffset      uint32
	GLBSize        uint32
	ParticleOffset uint32
	ParticleSize   uint32
	TextureCount   uint32
	TextureOffset  uint32
}

// ItemName returns the name stored in h, without trailing NULs.
func (h *Header) ItemName() string {
	return string(bytes.TrimRight(h.Name[:], "\x00"))
}

type ParticleEmitter struct {
	Position         [3]float32
	Direction        [3]float32
	SpreadAngle      float32
	EmissionRate     float32
	ParticleLifetime float32
	StartSize        float32
	EndSize          float32
	StartColor       [4]float32
	EndColor         [4]float32
	VelocityMin      [3]float32
	VelocityMax      [3]float32
	Gravity          float32
	TextureIndex     int32
	BlendMode        uint8
	Loop             uint8
	_                [2]byte
}

var emitterSize = binary.Size(ParticleEmitter{})

// Container is a decoded NTSM file.
type Container struct {
	Header   Header
	GLB      []byte
	Emitters []ParticleEmitter
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

// Decode reads an NTSM stream and validates its layout.
func Decode(r io.Reader) (*Container, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < HeaderSize {
		return nil, invalid("short header (%d bytes)", len(data))
	}

	var c Container
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &c.Header); err != nil {
		return nil, invalid("header: %v", err)
	}
	hdr := &c.Header
	if string(hdr.Magic[:]) != Magic {
		return nil, invalid("bad magic %q", hdr.Magic[:])
	}
	if hdr.Version != Version {
		return nil, invalid("unsupported version %d", hdr.Version)
	}

	glb, err := section(data, hdr.GLBOffset, hdr.GLBSize)
	if err != nil {
		return nil, invalid("glb section: %v", err)
	}
	if len(glb) == 0 {
		return nil, invalid("empty glb section")
	}
	c.GLB = glb

	if hdr.ParticleSize > 0 && hdr.Flags&FlagParticles != 0 {
		raw, err := section(data, hdr.ParticleOffset, hdr.ParticleSize)
		if err != nil {
			return nil, invalid("particle section: %v", err)
		}
		if len(raw)%emitterSize != 0 {
			return nil, invalid("particle section size %d not a multiple of %d", len(raw), emitterSize)
		}
		c.Emitters = make([]ParticleEmitter, len(raw)/emitterSize)
		if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, c.Emitters); err != nil {
			return nil, invalid("particle section: %v", err)
		}
	}
	return &c, nil
}

func section(data []byte, off, size uint32) ([]byte, error) {
	start, end := uint64(off), uint64(off)+uint64(size)
	if start < HeaderSize || end > uint64(len(data)) {
		return nil, fmt.Errorf("range [%d, %d) outside file of %d bytes", start, end, len(data))
	}
	return data[start:end], nil
}

// Encode writes a container holding glb and emitters into w.
// Names longer than 127 bytes are truncated.
func Encode(w io.Writer, name string, glb []byte, emitters []ParticleEmitter) error {
	hdr := Header{
		Version:        Version,
		GLBOffset:      HeaderSize,
		GLBSize:        uint32(len(glb)),
		ParticleOffset: HeaderSize + uint32(len(glb)),
		ParticleSize:   uint32(len(emitters) * emitterSize),
	}
	copy(hdr.Magic[:], Magic)
	if len(emitters) > 0 {
		hdr.Flags |= FlagParticles
	}
	n := []byte(name)
	if len(n) > 127 {
		n = n[:127]
	}
	copy(hdr.Name[:], n)

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("ntsm: header write failed: %w", err)
	}
	buf.Write(make([]byte, HeaderSize-buf.Len()))
	buf.Write(glb)
	if len(emitters) > 0 {
		if err := binary.Write(&buf, binary.LittleEndian, emitters); err != nil {
			return fmt.Errorf("ntsm: particle write failed: %w", err)
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}
