// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package flatforge implements a cross-language, zero-copy binary
// serialization toolchain compatible with the FlatBuffers wire format.
//
/*

The package provides the three runtime components that any implementation
of this format has to get right:

	builder  - an emit-as-you-go construction engine that writes a binary
	           buffer backwards from the root, deduplicating vtables as it
	           goes (see Builder).
	verifier - a bounds-and-alignment validator that accepts any byte slice
	           and either proves every object reachable from the root is
	           well-formed, or rejects it (see Verify /
	           Verifier.VerifyTableAsNestedRoot).
	printer  - a verified-buffer-to-JSON renderer driven by a generated
	           TableDescriptor (see Print).

A buffer is built bottom-up:

	b := flatforge.NewBuilder(0)
	name, _ := b.CreateString("widget")
	b.StartTable(2)
	b.TableAddOffset(0, name, 0)
	b.TableAddUint32(1, 42, 0)
	row, _ := b.EndTable()
	buf, err := b.FinishBuffer(row, "WDGT")

and read back only after it has survived Verify against the root table's
descriptor (rowDescriptor here):

	if err := flatforge.Verify(buf, "WDGT", rowDescriptor); err != nil {
		return err
	}

The schema compiler that turns an IDL file into a TableDescriptor and
generated accessor code lives under internal/idl and cmd/flatforgec; it is
ordinary front-end engineering and is not part of the core contract this
package documents.

*/
package flatforge
