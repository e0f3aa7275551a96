// Package rom owns the ROM/extended-ROM images and their identity (HiScan
// vs CarmanScan), plus container sniffing for archives that must be
// unpacked by an external collaborator before loading.
package rom

import (
	"bytes"

	"github.com/retrodiag/ice196/coreerr"
)

// Variant identifies the ROM's board family, detected from its contents.
type Variant int

const (
	HiScan Variant = iota
	CarmanScan
)

func (v Variant) String() string {
	if v == CarmanScan {
		return "CarmanScan"
	}
	return "HiScan"
}

// Image is a loaded ROM image together with its display name (retained
// across reloads) and detected variant.
type Image struct {
	Name    string
	Data    []byte
	Variant Variant
}

// carmanTag is searched for anywhere in the image; its presence selects
// the CarmanScan variant.
var carmanTag = []byte("CARMAN")

// Load wraps a raw ROM image with its detected variant. name is the
// original file name and is retained across reloads even if the
// underlying bytes are later replaced by Reload.
func Load(name string, data []byte) *Image {
	v := HiScan
	if bytes.Contains(data, carmanTag) {
		v = CarmanScan
	}
	return &Image{Name: name, Data: data, Variant: v}
}

// Reload replaces the image's bytes in place, discarding the previous
// image but retaining Name.
func (i *Image) Reload(data []byte) {
	i.Data = data
	i.Variant = HiScan
	if bytes.Contains(data, carmanTag) {
		i.Variant = CarmanScan
	}
}

// Container identifies the detected wrapper format of an input file.
type Container int

const (
	Plain Container = iota
	LHA
	SelfExtractingPE
)

func (c Container) String() string {
	switch c {
	case LHA:
		return "LHA archive"
	case SelfExtractingPE:
		return "self-extracting PE executable"
	default:
		return "plain binary"
	}
}

// Sniff identifies the container format of a candidate ROM file without
// unpacking it - unpacking is an external collaborator's job.
// Sniff lets the core raise a clear error instead of silently
// misinterpreting a compressed image as a ROM.
func Sniff(data []byte) (Container, error) {
	if len(data) >= 5 && bytes.Equal(data[2:5], []byte("-lh")) {
		return LHA, coreerr.Errorf(coreerr.ArchiveNotPlain, LHA)
	}
	if len(data) >= 2 && data[0] == 'M' && data[1] == 'Z' {
		return SelfExtractingPE, coreerr.Errorf(coreerr.ArchiveNotPlain, SelfExtractingPE)
	}
	return Plain, nil
}
