// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Print renders buf, already validated by Verify against td, as UTF-8
// JSON. Print does not re-verify buf: callers that haven't already run
// Verify over untrusted input can read out of bounds.
func Print(buf []byte, td *TableDescriptor) ([]byte, error) {
	p := &printer{buf: buf}
	root, err := p.resolveOffset(0)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := p.printTable(&out, root, td); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

type printer struct {
	buf []byte
}

func (p *printer) resolveOffset(pos int) (int, error) {
	if pos+SizeUOffset > len(p.buf) {
		return 0, verifyErr(KindOffsetOutOfRange, pos, "")
	}
	o := readUint32(p.buf[pos : pos+SizeUOffset])
	return pos + int(o), nil
}

func (p *printer) printTable(out *bytes.Buffer, pos int, td *TableDescriptor) error {
	so := readSOffset(p.buf[pos : pos+SizeSOffset])
	vtableBase := pos - int(so)
	vtableSize := int(readVOffset(p.buf[vtableBase : vtableBase+SizeVOffset]))

	if td == nil {
		out.WriteByte('{')
		out.WriteByte('}')
		return nil
	}

	out.WriteByte('{')
	wrote := false
	for _, field := range td.Fields {
		if field.Kind == FieldUnion {
			continue // union fields are skipped: the printer never renders them
		}
		slot := fieldSlotValue(p.buf, vtableBase, vtableSize, field.ID)
		if slot == 0 {
			continue
		}
		if wrote {
			out.WriteByte(',')
		}
		wrote = true
		p.writeKey(out, field.Name)
		if err := p.printField(out, pos+int(slot), field); err != nil {
			return err
		}
	}
	out.WriteByte('}')
	return nil
}

func (p *printer) writeKey(out *bytes.Buffer, name string) {
	b, _ := json.Marshal(name)
	out.Write(b)
	out.WriteByte(':')
}

func (p *printer) printField(out *bytes.Buffer, fieldPos int, field FieldDescriptor) error {
	switch field.Kind {
	case FieldBool:
		out.WriteString(strconv.FormatBool(readBool(p.buf[fieldPos:])))
		return nil
	case FieldScalar:
		if field.Enum != nil {
			return p.printEnum(out, fieldPos, field.Scalar, field.Enum)
		}
		return p.printScalar(out, fieldPos, field.Scalar)
	case FieldStruct:
		return p.printStruct(out, fieldPos, field)
	case FieldString:
		target, err := p.resolveOffset(fieldPos)
		if err != nil {
			return err
		}
		return p.printString(out, target)
	case FieldTable:
		target, err := p.resolveOffset(fieldPos)
		if err != nil {
			return err
		}
		return p.printTable(out, target, field.Table)
	case FieldScalarVector:
		target, err := p.resolveOffset(fieldPos)
		if err != nil {
			return err
		}
		return p.printScalarVector(out, target, field.Scalar)
	case FieldStringVector:
		target, err := p.resolveOffset(fieldPos)
		if err != nil {
			return err
		}
		return p.printVector(out, target, func(elemPos int) error {
			strPos, err := p.resolveOffset(elemPos)
			if err != nil {
				return err
			}
			return p.printString(out, strPos)
		}, SizeUOffset)
	case FieldTableVector:
		target, err := p.resolveOffset(fieldPos)
		if err != nil {
			return err
		}
		return p.printVector(out, target, func(elemPos int) error {
			childPos, err := p.resolveOffset(elemPos)
			if err != nil {
				return err
			}
			return p.printTable(out, childPos, field.Table)
		}, SizeUOffset)
	case FieldStructVector:
		target, err := p.resolveOffset(fieldPos)
		if err != nil {
			return err
		}
		return p.printVector(out, target, func(elemPos int) error {
			return p.printStruct(out, elemPos, field)
		}, field.Size)
	default:
		out.WriteString("null")
		return nil
	}
}

func (p *printer) printScalar(out *bytes.Buffer, pos int, t ScalarType) error {
	switch t {
	case ScalarInt8:
		out.WriteString(strconv.FormatInt(int64(readInt8(p.buf[pos:])), 10))
	case ScalarUint8:
		out.WriteString(strconv.FormatUint(uint64(readUint8(p.buf[pos:])), 10))
	case ScalarInt16:
		out.WriteString(strconv.FormatInt(int64(readInt16(p.buf[pos:])), 10))
	case ScalarUint16:
		out.WriteString(strconv.FormatUint(uint64(readUint16(p.buf[pos:])), 10))
	case ScalarInt32:
		out.WriteString(strconv.FormatInt(int64(readInt32(p.buf[pos:])), 10))
	case ScalarUint32:
		out.WriteString(strconv.FormatUint(uint64(readUint32(p.buf[pos:])), 10))
	case ScalarInt64:
		out.WriteString(strconv.FormatInt(readInt64(p.buf[pos:]), 10))
	case ScalarUint64:
		out.WriteString(strconv.FormatUint(readUint64(p.buf[pos:]), 10))
	case ScalarFloat32:
		out.WriteString(strconv.FormatFloat(float64(readFloat32(p.buf[pos:])), 'g', -1, 32))
	case ScalarFloat64:
		out.WriteString(strconv.FormatFloat(readFloat64(p.buf[pos:]), 'g', -1, 64))
	}
	return nil
}

// printEnum renders a scalar field as its enum's symbolic name, falling
// back to the raw integer when the value isn't a recognized member
// (spec.md's SUPPLEMENTED FEATURES: the original prints the integer
// rather than failing on an unrecognized enum value).
func (p *printer) printEnum(out *bytes.Buffer, pos int, t ScalarType, enum *EnumDescriptor) error {
	v := p.readScalarAsInt64(pos, t)
	if name, ok := enum.Values[v]; ok {
		b, err := json.Marshal(name)
		if err != nil {
			return err
		}
		out.Write(b)
		return nil
	}
	return p.printScalar(out, pos, t)
}

func (p *printer) readScalarAsInt64(pos int, t ScalarType) int64 {
	switch t {
	case ScalarInt8:
		return int64(readInt8(p.buf[pos:]))
	case ScalarUint8:
		return int64(readUint8(p.buf[pos:]))
	case ScalarInt16:
		return int64(readInt16(p.buf[pos:]))
	case ScalarUint16:
		return int64(readUint16(p.buf[pos:]))
	case ScalarInt32:
		return int64(readInt32(p.buf[pos:]))
	case ScalarUint32:
		return int64(readUint32(p.buf[pos:]))
	case ScalarInt64:
		return readInt64(p.buf[pos:])
	case ScalarUint64:
		return int64(readUint64(p.buf[pos:]))
	default:
		return 0
	}
}

func (p *printer) printStruct(out *bytes.Buffer, pos int, field FieldDescriptor) error {
	// Without per-member descriptors a struct prints as its raw bytes;
	// schema-aware callers supply finer-grained FieldDescriptors for each
	// member instead of relying on this fallback.
	out.WriteByte('"')
	for _, b := range p.buf[pos : pos+field.Size] {
		out.WriteString(strconv.FormatUint(uint64(b), 16))
	}
	out.WriteByte('"')
	return nil
}

func (p *printer) printString(out *bytes.Buffer, pos int) error {
	length := int(readUint32(p.buf[pos : pos+SizeUOffset]))
	s := p.buf[pos+SizeUOffset : pos+SizeUOffset+length]
	b, err := json.Marshal(string(s))
	if err != nil {
		return err
	}
	out.Write(b)
	return nil
}

func (p *printer) printScalarVector(out *bytes.Buffer, pos int, t ScalarType) error {
	return p.printVector(out, pos, func(elemPos int) error {
		return p.printScalar(out, elemPos, t)
	}, t.size())
}

func (p *printer) printVector(out *bytes.Buffer, pos int, printElem func(elemPos int) error, elemSize int) error {
	count := int(readUint32(p.buf[pos : pos+SizeUOffset]))
	first := pos + SizeUOffset
	out.WriteByte('[')
	for i := 0; i < count; i++ {
		if i > 0 {
			out.WriteByte(',')
		}
		if err := printElem(first + i*elemSize); err != nil {
			return err
		}
	}
	out.WriteByte(']')
	return nil
}
