// Package image stores compiled crates as content-hashed CBOR images, so a
// program can be loaded without re-parsing its text form.
package image

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/chazu/lamb/ir"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// FormatVersion is the image layout version written by this package.
const FormatVersion = 1

// Extension is the conventional file extension for images.
const Extension = ".limg"

var (
	ErrFormat       = errors.New("image: unsupported format version")
	ErrHashMismatch = errors.New("image: content hash mismatch")
	ErrNoProgram    = errors.New("image: no program")
)

// Image is one compiled crate plus identifying metadata. Hash is the
// SHA-256 of the canonical CBOR encoding of Program.
type Image struct {
	Format  uint16      `cbor:"1,keyasint"`
	ID      uuid.UUID   `cbor:"2,keyasint"`
	Crate   string      `cbor:"3,keyasint"`
	Hash    [32]byte    `cbor:"4,keyasint"`
	Program *ir.Program `cbor:"5,keyasint"`
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Build wraps prog in a new image with a fresh ID.
func Build(prog *ir.Program) (*Image, error) {
	if prog == nil {
		return nil, ErrNoProgram
	}
	hash, err := HashProgram(prog)
	if err != nil {
		return nil, err
	}
	return &Image{
		Format:  FormatVersion,
		ID:      uuid.New(),
		Crate:   prog.Crate,
		Hash:    hash,
		Program: prog,
	}, nil
}

// HashProgram returns the content hash of prog's canonical encoding.
func HashProgram(prog *ir.Program) ([32]byte, error) {
	data, err := cborEncMode.Marshal(prog)
	if err != nil {
		return [32]byte{}, fmt.Errorf("image: encode program: %w", err)
	}
	return sha256.Sum256(data), nil
}

// HashString returns the image hash in hex.
func (img *Image) HashString() string {
	return hex.EncodeToString(img.Hash[:])
}

// Marshal serializes an image to CBOR bytes.
func Marshal(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// Unmarshal deserializes an image and verifies its format and hash.
func Unmarshal(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if err := Verify(&img); err != nil {
		return nil, err
	}
	return &img, nil
}

// Verify checks an image's format version and content hash.
func Verify(img *Image) error {
	if img.Format != FormatVersion {
		return fmt.Errorf("%w: %d", ErrFormat, img.Format)
	}
	if img.Program == nil {
		return ErrNoProgram
	}
	hash, err := HashProgram(img.Program)
	if err != nil {
		return err
	}
	if hash != img.Hash {
		return fmt.Errorf("%w: crate %s", ErrHashMismatch, img.Crate)
	}
	return nil
}

// ReadFile loads and verifies an image file.
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	img, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// WriteFile encodes img to path.
func WriteFile(path string, img *Image) error {
	data, err := Marshal(img)
	if err != nil {
		return fmt.Errorf("image: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	return nil
}
