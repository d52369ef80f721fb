package codec

import (
	"github.com/nmxmxh/fossilize/internal/errutil"
	"github.com/nmxmxh/fossilize/internal/model"
)

// FormatVersion is bumped whenever the fingerprint's "irrelevant field"
// masking rules change, invalidating previously-written archives (spec §9
// Open Questions: "must encode a format-version bump in the archive
// header to invalidate old files safely").
const FormatVersion uint16 = 1

// EncodeBlob wraps body in the self-describing header from spec §6:
// { tag: u8, format-version: u16, length: u32 }.
func EncodeBlob(tag model.Tag, body []byte) []byte {
	e := NewEncoder()
	e.U8(uint8(tag))
	e.U16(FormatVersion)
	e.U32(uint32(len(body)))
	e.buf = append(e.buf, body...)
	return e.Bytes()
}

// DecodeBlobHeader parses the blob header and returns the declared tag,
// format version and the body slice (not yet validated against its
// declared length beyond bounds-checking).
func DecodeBlobHeader(buf []byte) (tag model.Tag, version uint16, body []byte, err error) {
	d := NewDecoder(buf)
	t, err := d.U8()
	if err != nil {
		return 0, 0, nil, err
	}
	v, err := d.U16()
	if err != nil {
		return 0, 0, nil, err
	}
	length, err := d.U32()
	if err != nil {
		return 0, 0, nil, err
	}
	if err := d.need(int(length)); err != nil {
		return 0, 0, nil, err
	}
	body = d.buf[d.off : d.off+int(length)]
	if !model.Tag(t).Valid() {
		return 0, 0, nil, &errutil.ParseError{Reason: "unknown resource tag in blob header"}
	}
	return model.Tag(t), v, body, nil
}

// encodeExtensions writes a chained extension-struct list as a sequence of
// { struct-type-tag, length, body } records (spec §4.3).
func encodeExtensions(e *Encoder, exts []model.Extension) {
	e.Len(len(exts))
	for _, x := range exts {
		e.U32(x.Type)
		e.WriteBytes(x.Body)
	}
}

// decodeExtensions reads the chain back. An unrecognized struct-type-tag
// is a hard decode error, never silently dropped (spec §4.3).
func decodeExtensions(d *Decoder) ([]model.Extension, error) {
	n, err := d.Len()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	exts := make([]model.Extension, n)
	for i := range exts {
		typ, err := d.U32()
		if err != nil {
			return nil, err
		}
		if !model.KnownExtension(typ) {
			return nil, &errutil.ParseError{Reason: "unknown extension struct-type-tag"}
		}
		body, err := d.ReadBytes()
		if err != nil {
			return nil, err
		}
		exts[i] = model.Extension{Type: typ, Body: body}
	}
	return exts, nil
}
